package driver

import "time"

// Stage describes a phase of one file's analysis.
type Stage string

const (
	StageRead    Stage = "read"
	StageParse   Stage = "parse"
	StageAnalyze Stage = "analyze"
	StageFix     Stage = "fix"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the file is waiting for a worker.
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	// StatusCached means the result came from the disk cache.
	StatusCached Status = "cached"
	StatusDone   Status = "done"
	StatusError  Status = "error"
)

// Event reports progress for a file (or for the whole run when File is empty).
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. OnEvent is called from worker
// goroutines.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// SinkFunc adapts a function into a ProgressSink.
type SinkFunc func(Event)

func (f SinkFunc) OnEvent(evt Event) { f(evt) }

func emit(sink ProgressSink, ev Event) {
	if sink != nil {
		sink.OnEvent(ev)
	}
}
