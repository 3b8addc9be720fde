package sentencepiece

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// spaceSymbol is the meta symbol that replaces spaces in pieces.
const spaceSymbol = "▁"

// normalize prepares text for segmentation. The precompiled charsmap of the
// reference normalizer is not evaluated; NFKC and the nmt control-character
// folding cover the rules the stock normalizers apply.
func (p *Processor) normalize(text string) string {
	spec := p.model.Normalizer
	name := strings.ToLower(spec.Name)

	if strings.HasPrefix(name, "nmt_") {
		text = foldControls(text)
	}
	if strings.Contains(name, "nfkc") {
		text = norm.NFKC.String(text)
	}
	if spec.RemoveExtraWhitespaces {
		text = collapseSpaces(text)
	}
	if text == "" {
		return ""
	}
	if spec.AddDummyPrefix {
		if p.model.Trainer.TreatWhitespaceAsSuffix {
			text += " "
		} else {
			text = " " + text
		}
	}
	if spec.EscapeWhitespaces {
		text = strings.ReplaceAll(text, " ", spaceSymbol)
	}
	return text
}

// foldControls maps whitespace controls to a space and drops the remaining
// C0 controls and DEL.
func foldControls(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			return ' '
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, s)
}

// collapseSpaces removes leading and trailing spaces and squeezes runs of
// spaces into one.
func collapseSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pending := false
	for _, r := range s {
		if r == ' ' {
			pending = b.Len() > 0
			continue
		}
		if pending {
			b.WriteByte(' ')
			pending = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
