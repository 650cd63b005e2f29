package domain

import (
	"fmt"
	"strings"
)

type SegmentKind string

const (
	SegmentText  SegmentKind = "text"
	SegmentImage SegmentKind = "image"
)

// Segment is one element of the ordered multimodal prompt. Exactly one of
// Text or Image is set, depending on Kind.
type Segment struct {
	Kind  SegmentKind
	Text  string
	Image ImageBlob
}

// PromptDocument is the provider-agnostic prompt: an ordered segment sequence.
// Order is load-bearing. The model is told that an overlay immediately follows
// the photo it annotates; there is no other key linking the two.
type PromptDocument struct {
	Segments []Segment
}

func (d PromptDocument) ImageCount() int {
	n := 0
	for _, seg := range d.Segments {
		if seg.Kind == SegmentImage {
			n++
		}
	}
	return n
}

// AssemblePrompt derives the prompt document from a validated submission.
// Pure function: one metadata segment, then per shot in submission order the
// photo label, the photo, and (when present) the overlay label and overlay.
// A missing overlay must not shift the numbering of later photos.
func AssemblePrompt(req EstimationRequest) PromptDocument {
	segments := make([]Segment, 0, 1+4*len(req.Shots))
	segments = append(segments, Segment{Kind: SegmentText, Text: metadataText(req)})

	for i, shot := range req.Shots {
		segments = append(segments,
			Segment{Kind: SegmentText, Text: fmt.Sprintf("Photo %d (original)", i+1)},
			Segment{Kind: SegmentImage, Image: shot.Photo},
		)
		if shot.Overlay != nil {
			segments = append(segments,
				Segment{Kind: SegmentText, Text: fmt.Sprintf("Photo %d overlay: Green = include/count. Red = exclude/ignore.", i+1)},
				Segment{Kind: SegmentImage, Image: *shot.Overlay},
			)
		}
	}

	return PromptDocument{Segments: segments}
}

func metadataText(req EstimationRequest) string {
	dumpster := "UNKNOWN"
	if req.DumpsterSize != nil {
		dumpster = strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", *req.DumpsterSize), "0"), ".") + " yard"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Job type: %s\n", req.JobType)
	fmt.Fprintf(&b, "Dumpster size: %s\n", dumpster)
	fmt.Fprintf(&b, "Agent label: %s\n", orNone(req.AgentLabel))
	fmt.Fprintf(&b, "Notes: %s\n\n", orNone(req.Notes))
	b.WriteString("Overlay rules (if provided after a photo):\n")
	b.WriteString("- Green marks = INCLUDE in estimate (count/remove)\n")
	b.WriteString("- Red marks = EXCLUDE from estimate (stays/ignore)\n")
	b.WriteString("- If a photo has no green marks, assume everything is in-scope EXCEPT red-marked areas.\n")
	b.WriteString("- The dumpster container itself should NEVER be counted as junk volume.\n")
	return b.String()
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "None"
	}
	return s
}
