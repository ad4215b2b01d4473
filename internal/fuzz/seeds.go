package fuzztests

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

const (
	maxSeedBytes = 64 << 10 // 64 KiB — ограничение для тестового корпуса
	maxFuzzInput = 1 << 16  // 64 KiB
)

// markupSeeds покрывают основные ветки лексера и восстановления парсера.
var markupSeeds = []string{
	"",
	"<div>hello</div>",
	"<UserCard name=\"Ada\" age={user.age} />",
	"<button on:click={save}>Save</button>",
	"<img src=\"a.png\" alt=\"\">",
	"<ul>{#each items}<li key={item.id}>{item.name}</li>{/each}</ul>",
	"<style>.card { color: red; } @media (max-width: 1px) { .card { } }</style>",
	"<script>if (a < b) { x = \"</div>\"; }</script>",
	"<!-- comment --><p>text</p>",
	"<!-- unterminated",
	"<div class=\"open",
	"<div <span>",
	"<div></span></div>",
	"</stray>",
	"<a href=>x</a>",
	"<p>{unclosed</p>",
	"<Café>x</Café>",
	"<style>.a { color: red;",
	"\ufeff<div>\r\n</div>\r\n",
	"<<<>>>{{}}",
}

func addCorpusSeeds(f *testing.F) {
	for _, s := range markupSeeds {
		f.Add([]byte(s))
	}
	addTestdataSeeds(f)
}

func addTestdataSeeds(f *testing.F) {
	root := filepath.Join("..", "..", "testdata")
	if _, err := os.Stat(root); err != nil {
		return
	}
	// проходим по дереву testdata, добавляем все *.orbit файлы
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Ext(path) != ".orbit" {
			return nil
		}
		// #nosec G304 -- path comes from repository testdata walk
		src, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		f.Add(clampSeed(src))
		return nil
	})
	if err != nil {
		return
	}
}

func clampSeed(src []byte) []byte {
	if len(src) <= maxSeedBytes {
		return append([]byte(nil), src...)
	}
	return append([]byte(nil), src[:maxSeedBytes]...)
}

func clampInput(input []byte) []byte {
	if len(input) > maxFuzzInput {
		return append([]byte(nil), input[:maxFuzzInput]...)
	}
	return append([]byte(nil), input...)
}
