package extractor

import (
	"net/url"
	"regexp"
	"strings"
)

const maxSpansPerSignature = 10

// span is one matched payload within the scanned text.
type span struct {
	start, end int
	data       []byte
	ext        string
	decoded    bool
}

// signature detects one file type in text. Signatures are evaluated in
// order and the first one with any match wins.
type signature struct {
	name string
	// inline spans are replaced in the response text once stored.
	inline bool
	find   func(text string) []span
}

func regexFinder(re *regexp.Regexp, ext string, group int, decode func(string) ([]byte, error)) func(string) []span {
	return func(text string) []span {
		var out []span
		for _, m := range re.FindAllStringSubmatchIndex(text, maxSpansPerSignature) {
			payload := text[m[2*group]:m[2*group+1]]
			s := span{start: m[0], end: m[1], ext: ext}
			if decode == nil {
				s.data, s.decoded = []byte(payload), true
			} else if b, err := decode(payload); err == nil && len(b) > 0 {
				s.data, s.decoded = b, true
			} else {
				s.data = []byte(payload)
			}
			out = append(out, s)
		}
		return out
	}
}

func percentDecode(s string) ([]byte, error) {
	v, err := url.PathUnescape(s)
	if err != nil {
		return nil, err
	}
	return []byte(v), nil
}

const b64 = `([A-Za-z0-9+/]+={0,2})`

var (
	pngDataURL  = regexp.MustCompile(`data:image/png;base64,` + b64)
	pngBase64   = regexp.MustCompile(`iVBORw0KGgo[A-Za-z0-9+/]*={0,2}`)
	pngHex      = regexp.MustCompile(`(?i)89504e470d0a1a0a[0-9a-f]*`)
	jpegDataURL = regexp.MustCompile(`data:image/jpe?g;base64,` + b64)
	svgInline   = regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`)
	svgBase64   = regexp.MustCompile(`data:image/svg\+xml;base64,` + b64)
	svgEscaped  = regexp.MustCompile(`data:image/svg\+xml(?:;utf8|;charset=utf-8)?,([^"'\s)]+)`)
	pdfDataURL  = regexp.MustCompile(`data:application/pdf;base64,` + b64)
	pdfBase64   = regexp.MustCompile(`JVBERi0[A-Za-z0-9+/]*={0,2}`)
	xlsxDataURL = regexp.MustCompile(`data:application/vnd\.openxmlformats-officedocument\.spreadsheetml\.sheet;base64,` + b64)
	docxDataURL = regexp.MustCompile(`data:application/vnd\.openxmlformats-officedocument\.wordprocessingml\.document;base64,` + b64)
	zipBase64   = regexp.MustCompile(`UEsDBBQA[A-Za-z0-9+/]*={0,2}`)
	csvDataURL  = regexp.MustCompile(`data:text/csv;base64,` + b64)
	csvEscaped  = regexp.MustCompile(`data:text/csv(?:;charset=utf-8)?,([^"'\s)]+)`)
	yamlFence   = regexp.MustCompile("(?s)```ya?ml[ \t]*\n(.*?)```")
	yamlCue     = regexp.MustCompile(`(?m)^(?:apiVersion:\s*\S+|kind:\s*\w+|AWSTemplateFormatVersion:)`)
)

// signatures is ordered from binary magic to text heuristics.
var signatures = []signature{
	{name: "png-data-url", inline: true, find: regexFinder(pngDataURL, ".png", 1, decodeBase64)},
	{name: "png-base64", inline: true, find: regexFinder(pngBase64, ".png", 0, decodeBase64)},
	{name: "png-hex", inline: true, find: regexFinder(pngHex, ".png", 0, decodeHex)},
	{name: "jpeg-data-url", inline: true, find: regexFinder(jpegDataURL, ".jpg", 1, decodeBase64)},
	{name: "svg-inline", inline: true, find: regexFinder(svgInline, ".svg", 0, nil)},
	{name: "svg-data-url", inline: true, find: regexFinder(svgBase64, ".svg", 1, decodeBase64)},
	{name: "svg-escaped", inline: true, find: regexFinder(svgEscaped, ".svg", 1, percentDecode)},
	{name: "pdf-data-url", inline: true, find: regexFinder(pdfDataURL, ".pdf", 1, decodeBase64)},
	{name: "pdf-base64", inline: true, find: regexFinder(pdfBase64, ".pdf", 0, decodeBase64)},
	{name: "xlsx-data-url", inline: true, find: regexFinder(xlsxDataURL, ".xlsx", 1, decodeBase64)},
	{name: "docx-data-url", inline: true, find: regexFinder(docxDataURL, ".docx", 1, decodeBase64)},
	{name: "office-base64", inline: true, find: officeFinder},
	{name: "csv-data-url", inline: true, find: regexFinder(csvDataURL, ".csv", 1, decodeBase64)},
	{name: "csv-escaped", inline: true, find: regexFinder(csvEscaped, ".csv", 1, percentDecode)},
	{name: "yaml", find: yamlFinder},
	{name: "csv-lines", find: csvLinesFinder},
}

func officeFinder(text string) []span {
	spans := regexFinder(zipBase64, ".xlsx", 0, decodeBase64)(text)
	for i := range spans {
		if spans[i].decoded {
			spans[i].ext = officeExt(spans[i].data)
		}
	}
	return spans
}

func yamlFinder(text string) []span {
	if m := yamlFence.FindStringSubmatchIndex(text); m != nil {
		return []span{{start: m[0], end: m[1], data: []byte(text[m[2]:m[3]]), ext: ".yaml", decoded: true}}
	}
	if yamlCue.MatchString(text) {
		return []span{{start: 0, end: len(text), data: []byte(strings.TrimSpace(text)), ext: ".yaml", decoded: true}}
	}
	return nil
}

const maxCellWords = 4

// tabularRow reports whether line reads as a comma-separated record rather
// than a sentence: no cell longer than a few words and no closing punctuation.
func tabularRow(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || strings.ContainsAny(line[len(line)-1:], ".!?:") || strings.HasSuffix(line, "…") {
		return false
	}
	for _, cell := range strings.Split(line, ",") {
		if len(strings.Fields(strings.Trim(cell, ` "`))) > maxCellWords {
			return false
		}
	}
	return true
}

// csvLinesFinder returns the first run of at least three consecutive tabular
// lines with the same number of commas (at least two).
func csvLinesFinder(text string) []span {
	const minRows = 3

	lines := strings.SplitAfter(text, "\n")
	offset := 0
	runStart, runOffset, runCommas, runLen := 0, 0, -1, 0

	flush := func(end int) []span {
		if runLen < minRows {
			return nil
		}
		block := strings.Join(lines[runStart:runStart+runLen], "")
		return []span{{start: runOffset, end: end, data: []byte(strings.TrimRight(block, "\n") + "\n"), ext: ".csv", decoded: true}}
	}

	for i, line := range lines {
		commas := strings.Count(line, ",")
		if !tabularRow(line) {
			commas = 0
		}
		if commas >= 2 && commas == runCommas {
			runLen++
		} else {
			if found := flush(offset); found != nil {
				return found
			}
			if commas >= 2 {
				runStart, runOffset, runCommas, runLen = i, offset, commas, 1
			} else {
				runCommas, runLen = -1, 0
			}
		}
		offset += len(line)
	}
	return flush(offset)
}
