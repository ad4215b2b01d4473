
// Package fuzztests houses Go fuzz harnesses that exercise the front of the
// Orlint pipeline (source -> lexer -> parser). Its goal is to smoke test
// resilience: arbitrary bytes must never panic, hang or produce a tree that
// violates span containment.
//
// Назначение: запускать fuzz-обработчики, которые загружают байты в FileSet и
// прогоняют их через лексер/парсер.
//
// Не делает: генерацию корпусов, запись файлов, выполнение правил.
//
// Зависимости: internal/source, internal/lexer, internal/parser, internal/diag,
// internal/testkit.

package fuzztests
