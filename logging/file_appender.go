package logging

import "gopkg.in/natefinch/lumberjack.v2"

// FileAppender writes console formatted lines to a file that is rotated once it grows past
// MaxSizeMB. Old files are compressed and only the newest few are kept.
type FileAppender struct {
	ConsoleAppender
	file *lumberjack.Logger
}

// Rotation limits of a FileAppender.
const (
	MaxSizeMB  = 64
	MaxBackups = 3
)

// NewFileAppender returns an appender writing to filename. The file is created on the first
// write.
func NewFileAppender(filename string) *FileAppender {
	file := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    MaxSizeMB,
		MaxBackups: MaxBackups,
		Compress:   true,
	}
	return &FileAppender{ConsoleAppender: ConsoleAppender{file}, file: file}
}

// Close closes the current file. A later write reopens it.
func (fa *FileAppender) Close() error {
	return fa.file.Close()
}
