package convert

// Stage is a state in the per-call conversion state machine:
//
//	Classified -> PassThrough -> Resolved
//	Classified -> Decoding -> Rendering -> Encoding -> Resolved
//
// Any stage may move to Rejected. Raster sources skip Decoding; canvas
// output skips Encoding.
type Stage int

const (
	StageClassified Stage = iota
	StagePassThrough
	StageDecoding
	StageRendering
	StageEncoding
	StageResolved
	StageRejected
)

var stageNames = [...]string{
	StageClassified:  "classified",
	StagePassThrough: "pass_through",
	StageDecoding:    "decoding",
	StageRendering:   "rendering",
	StageEncoding:    "encoding",
	StageResolved:    "resolved",
	StageRejected:    "rejected",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}
