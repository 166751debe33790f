package audio

import "errors"

// ErrChunkingFailed indicates FFmpeg failed during audio chunking.
var ErrChunkingFailed = errors.New("audio chunking failed")

// ErrChunkTooLarge indicates a chunk exceeds the OpenAI API limit (25MB).
var ErrChunkTooLarge = errors.New("chunk exceeds 25MB limit")

// ErrFileNotFound indicates the specified input file does not exist.
var ErrFileNotFound = errors.New("file not found")
