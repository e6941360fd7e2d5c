package logger

// Entry is a formatted log line handed to a Sink's callback form, the
// generalization of nabbar-golib/logger/entry.go's field-carrying
// record.
type Entry struct {
	Level   Level
	Message string
	Fields  map[string]interface{}
}
