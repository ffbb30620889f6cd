// Package transcode converts a newline-delimited JSON completion stream into
// the line-oriented text token protocol spoken by chat clients.
//
// An upstream chat backend streams records such as:
//
//	{"choices":[{"delta":{"content":"Hello"}}]}\n
//
// and the downstream client expects one token per text delta:
//
//	0:"Hello"\n
//
// The pipeline is strictly sequential for a single stream:
//
//	┌──────────────┐   ┌─────────────┐   ┌───────────┐   ┌────────┐   ┌────────────┐
//	│ upstream     │──▶│ Reassembler │──▶│ Extractor │──▶│ Encode │──▶│ downstream │
//	│ io.Reader    │   │ (records)   │   │ (delta)   │   │ (token)│   │ io.Writer  │
//	└──────────────┘   └─────────────┘   └───────────┘   └────────┘   └────────────┘
//
// Transcoder.Run drives the pipeline: every record produced by one upstream
// read is extracted, encoded and written before the next read is issued.
package transcode
