package builtin

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"orlint/internal/diag"
	"orlint/internal/fix"
	"orlint/internal/parser"
	"orlint/internal/rules"
	"orlint/internal/source"
)

type result struct {
	diags   []diag.Diagnostic
	content []byte
	file    *source.File
}

func runRule(t *testing.T, r rules.Rule, src string, settings rules.Settings) result {
	t.Helper()
	fs := source.NewFileSet()
	doc := parser.ParseSource(fs, "test.orbit", []byte(src), parser.Options{})
	bag := diag.NewBag(0)
	file := fs.Get(doc.File)
	ctx := rules.NewContext(context.Background(), r.Meta().ID, doc, file, settings, r.Meta().DefaultSeverity, diag.BagReporter{Bag: bag})
	if err := r.Check(ctx); err != nil {
		t.Fatalf("%s: %v", r.Meta().ID, err)
	}
	bag.Sort()
	for _, d := range bag.Items() {
		if !d.InBounds(len(file.Content)) {
			t.Fatalf("%s reported out-of-bounds diagnostic %+v", r.Meta().ID, d)
		}
	}
	return result{diags: bag.Items(), content: file.Content, file: file}
}

func (r result) messages() []string {
	out := make([]string, len(r.diags))
	for i, d := range r.diags {
		out[i] = d.Message
	}
	return out
}

func (r result) applyAll(t *testing.T) string {
	t.Helper()
	cands, _ := fix.Select(r.diags, fix.SelectOptions{})
	res, err := fix.Apply(r.content, cands)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	return string(res.Content)
}

func TestRegisterAll(t *testing.T) {
	reg := rules.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.Len() != len(All()) {
		t.Fatalf("registered %d of %d", reg.Len(), len(All()))
	}
	for _, r := range reg.All() {
		m := r.Meta()
		if m.Description == "" {
			t.Errorf("%s has no description", m.ID)
		}
		if (m.Category == rules.CategoryAccessibility) != (m.MinLevel != rules.LevelNone) {
			t.Errorf("%s: MinLevel %s does not match category %s", m.ID, m.MinLevel, m.Category)
		}
	}
	// повторная регистрация — DuplicateRuleError
	if err := Register(reg); err == nil {
		t.Fatalf("second Register succeeded")
	}
}

func TestPropTypeRequired(t *testing.T) {
	settings := rules.Settings{Components: map[string]rules.ComponentSpec{
		"Button": {Required: []string{"label", "kind"}},
	}}
	src := `<Button label="Save" /><Button kind={k} label={l} /><Link>home</Link><button />`
	got := runRule(t, propTypeRequired{}, src, settings).messages()
	want := []string{
		`<Button> is missing required prop "kind"`,
		`<Link> is missing required prop "to"`,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("messages (-want +got):\n%s", diff)
	}
}

func TestPropTypeConfigOverridesBuiltin(t *testing.T) {
	settings := rules.Settings{Components: map[string]rules.ComponentSpec{
		"Link": {},
	}}
	if got := runRule(t, propTypeRequired{}, `<Link />`, settings).diags; len(got) != 0 {
		t.Fatalf("unexpected diagnostics: %v", got)
	}
}

func TestNoDuplicateAttributes(t *testing.T) {
	src := `<div class="a" id="x" class="b" on:click={f} @click={g}></div>`
	res := runRule(t, noDuplicateAttributes{}, src, rules.Settings{})
	if len(res.diags) != 2 {
		t.Fatalf("got %d diagnostics: %v", len(res.diags), res.messages())
	}
	if !strings.Contains(res.diags[0].Message, `"class"`) {
		t.Fatalf("first message = %q", res.diags[0].Message)
	}
	if len(res.diags[0].Notes) != 1 {
		t.Fatalf("expected note pointing at the overriding attribute")
	}
	// фикс удаляет более раннее значение вместе с пробелом
	if got, want := res.applyAll(t), `<div id="x" class="b" @click={g}></div>`; got != want {
		t.Fatalf("fixed = %q, want %q", got, want)
	}
}

func TestNoDuplicateAttributesCaseRules(t *testing.T) {
	// HTML-атрибуты сравниваются без учёта регистра, у компонентов — точно
	res := runRule(t, noDuplicateAttributes{}, `<div ID="a" id="b"></div><Card Title="a" title="b" />`, rules.Settings{})
	if len(res.diags) != 1 {
		t.Fatalf("got %v", res.messages())
	}
}

func TestImgAlt(t *testing.T) {
	src := `<img src="a.png"><img src="b.png" alt=""><img src="c.png" aria-hidden="true"><img src=d><Image src="x" />`
	res := runRule(t, a11yImgAlt{}, src, rules.Settings{})
	if len(res.diags) != 2 {
		t.Fatalf("got %v", res.messages())
	}
	if res.diags[0].Severity != diag.SevError {
		t.Fatalf("severity = %s", res.diags[0].Severity)
	}
	if res.file.Text(res.diags[0].Primary) != `<img src="a.png">` {
		t.Fatalf("primary text = %q", res.file.Text(res.diags[0].Primary))
	}

	// фикс требует ревью: без AllowUnsafe его не выбирают
	if cands, skips := fix.Select(res.diags, fix.SelectOptions{}); len(cands) != 0 || len(skips) != 2 {
		t.Fatalf("review-only fix selected by default: %d candidates, %d skipped", len(cands), len(skips))
	}
	cands, _ := fix.Select(res.diags, fix.SelectOptions{AllowUnsafe: true})
	out, err := fix.Apply(res.content, cands)
	if err != nil {
		t.Fatal(err)
	}
	want := `<img alt="" src="a.png"><img src="b.png" alt=""><img src="c.png" aria-hidden="true"><img alt="" src=d><Image src="x" />`
	if string(out.Content) != want {
		t.Fatalf("fixed = %q, want %q", out.Content, want)
	}
}

func TestButtonName(t *testing.T) {
	src := `<button></button>` +
		`<button>Save</button>` +
		`<button aria-label="Close"></button>` +
		`<button><img src="x.png" alt="Delete"></button>` +
		`<button><Icon name="x" /></button>` +
		`<button>{label}</button>` +
		`<div role="button"></div>` +
		`<button title=" "></button>`
	res := runRule(t, a11yButtonName{}, src, rules.Settings{})
	want := []string{
		"<button> has no accessible name; add text, aria-label or title",
		"<div> has no accessible name; add text, aria-label or title",
		"<button> has no accessible name; add text, aria-label or title",
	}
	if diff := cmp.Diff(want, res.messages()); diff != "" {
		t.Fatalf("messages (-want +got):\n%s", diff)
	}
}

func TestClickKeyboard(t *testing.T) {
	src := `<div on:click={open}>x</div>` +
		`<div @click={open} on:keydown={open}>y</div>` +
		`<button on:click={open}>ok</button>` +
		`<Card on:click={open} />` +
		`<span on:mouseover={hover}></span>`
	res := runRule(t, a11yClickKeyboard{}, src, rules.Settings{})
	if len(res.diags) != 1 {
		t.Fatalf("got %v", res.messages())
	}
	if got := res.file.Text(res.diags[0].Primary); got != "on:click={open}" {
		t.Fatalf("primary text = %q", got)
	}
}

func TestHeadingOrder(t *testing.T) {
	src := `<h1>a</h1><h2>b</h2><h4>c</h4><h2>d</h2><h3>e</h3><h6>f</h6>`
	got := runRule(t, a11yHeadingOrder{}, src, rules.Settings{}).messages()
	want := []string{
		"heading level skips from h2 to h4",
		"heading level skips from h3 to h6",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("messages (-want +got):\n%s", diff)
	}
}

func TestRenderBudget(t *testing.T) {
	var b strings.Builder
	b.WriteString("<ul>")
	b.WriteString(`<li each={items} key={item.id} on:click={pick}>{item.name} <span>{item.price}</span></li>`)
	b.WriteString("</ul>")
	src := b.String()

	// disabled
	if got := runRule(t, perfRenderBudget{}, src, rules.Settings{}).diags; len(got) != 0 {
		t.Fatalf("threshold 0 must disable the rule: %v", got)
	}
	// ul 50 + li (50 + 20 each + 20 key + 30 binding + 20 text + span 50 + 20) * 10 = 50 + 2100
	if got := RenderCost(parser.ParseSource(source.NewFileSet(), "x.orbit", []byte(src), parser.Options{}), 1); got != 2150 {
		t.Fatalf("RenderCost = %d, want 2150", got)
	}
	res := runRule(t, perfRenderBudget{}, src, rules.Settings{RenderingThresholdMS: 2})
	if len(res.diags) != 1 {
		t.Fatalf("got %v", res.messages())
	}
	if res.diags[0].Message != "estimated render cost 2.15ms exceeds the 2ms budget" {
		t.Fatalf("message = %q", res.diags[0].Message)
	}
	if len(res.diags[0].Notes) != 1 {
		t.Fatalf("expected a note on the loop")
	}
	if got := runRule(t, perfRenderBudget{}, src, rules.Settings{RenderingThresholdMS: 3}).diags; len(got) != 0 {
		t.Fatalf("under budget: %v", got)
	}
}

func TestInlineHandler(t *testing.T) {
	src := `<button on:click={() => save(1)}>a</button><button @click={save}>b</button><a on:focus={function () { x() }}>c</a>`
	res := runRule(t, perfInlineHandler{}, src, rules.Settings{})
	if len(res.diags) != 2 {
		t.Fatalf("got %v", res.messages())
	}
	if res.diags[0].Message != `inline handler for "click" is recreated on every render; move it to a named function` {
		t.Fatalf("message = %q", res.diags[0].Message)
	}
}

func TestEmptyStyleBlock(t *testing.T) {
	src := "<style>\n  .a { color: red; }\n  .empty { }\n  .b {}  .c { margin: 0 }\n</style>"
	res := runRule(t, styleEmptyBlock{}, src, rules.Settings{})
	if len(res.diags) != 2 {
		t.Fatalf("got %v", res.messages())
	}
	if res.diags[0].Message != `empty style rule ".empty"` {
		t.Fatalf("message = %q", res.diags[0].Message)
	}
	want := "<style>\n  .a { color: red; }\n    .c { margin: 0 }\n</style>"
	if got := res.applyAll(t); got != want {
		t.Fatalf("fixed = %q, want %q", got, want)
	}
}

func TestQuoteAttributes(t *testing.T) {
	src := `<input type=text value="x" disabled size={n} tabindex=-1>`
	res := runRule(t, styleQuoteAttributes{}, src, rules.Settings{})
	if len(res.diags) != 2 {
		t.Fatalf("got %v", res.messages())
	}
	if res.diags[0].Severity != diag.SevHint {
		t.Fatalf("severity = %s", res.diags[0].Severity)
	}
	if got, want := res.applyAll(t), `<input type="text" value="x" disabled size={n} tabindex="-1">`; got != want {
		t.Fatalf("fixed = %q, want %q", got, want)
	}
}

func TestLoopKey(t *testing.T) {
	src := `<ul><li each={items}>{item}</li><li each={items} key={item.id}>{item}</li></ul>`
	res := runRule(t, loopKey{}, src, rules.Settings{})
	if len(res.diags) != 1 {
		t.Fatalf("got %v", res.messages())
	}
	if got := res.file.Text(res.diags[0].Primary); got != "each={items}" {
		t.Fatalf("primary = %q", got)
	}
}
