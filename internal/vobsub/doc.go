// Package vobsub reads DVD subtitle streams stored as a VobSub .idx/.sub pair.
//
// The index, IFO palette and program stream parsers stay local: the index
// drives track selection and the extract command writes new indexes. Track
// decodes one subtitle track with github.com/hekmon/go-vobsub and exposes it
// as a packet source and assembler for the extractor. A Track is a plain value
// owned by the caller; nothing here is global.
package vobsub
