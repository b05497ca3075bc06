package hexdump

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"sigscan/pattern"

	"github.com/Moonlight-Companies/gologger/coloransi"
)

// HexDumpOptions defines options for customizing the hexdump output
type HexDumpOptions struct {
	// BytesPerLine defines the number of bytes to display per line
	BytesPerLine int

	// GroupSize defines the grouping of bytes (usually 1, 2, 4, or 8)
	GroupSize int

	// ShowASCII determines whether to show the ASCII representation
	ShowASCII bool

	// ShowOffset determines whether to show the offset/address column
	ShowOffset bool

	// StartOffset is the address printed for the first byte
	StartOffset uint64

	// OffsetWidth is the width of the offset column in hex digits
	OffsetWidth int

	OffsetColor       coloransi.ColorCode
	HexColor          coloransi.ColorCode
	ASCIIColor        coloransi.ColorCode
	NonPrintableColor coloransi.ColorCode
	ZeroColor         coloransi.ColorCode

	// Highlight reports whether the byte at index i of the dumped data is highlighted
	Highlight func(i int) bool

	HighlightColor           coloransi.ColorCode
	HighlightBackgroundColor coloransi.ColorCode

	// NoColor disables ANSI escapes. Highlighted bytes are then printed in upper case.
	NoColor bool

	// MaxLines is the maximum number of lines to show (0 for no limit)
	MaxLines int

	// PointerCheck, when set, annotates each line with the little-endian
	// values at byte 0 and 8 that it accepts as pointers
	PointerCheck func(ptr uint64) bool
}

// DefaultOptions returns the default hexdump options
func DefaultOptions() HexDumpOptions {
	return HexDumpOptions{
		BytesPerLine:             16,
		GroupSize:                1,
		ShowASCII:                true,
		ShowOffset:               true,
		OffsetWidth:              8,
		OffsetColor:              coloransi.Cyan,
		HexColor:                 coloransi.Green,
		ASCIIColor:               coloransi.White,
		NonPrintableColor:        coloransi.BrightBlack,
		ZeroColor:                coloransi.BrightBlack,
		HighlightColor:           coloransi.Yellow,
		HighlightBackgroundColor: coloransi.Black,
	}
}

// Dump creates a hex dump of the given data with specified options
func Dump(data []byte, options HexDumpOptions) string {
	var buffer bytes.Buffer
	DumpToWriter(&buffer, data, options)
	return buffer.String()
}

// DumpToWriter writes a hex dump of the given data to the specified writer
func DumpToWriter(writer io.Writer, data []byte, options HexDumpOptions) {
	if options.BytesPerLine <= 0 {
		options.BytesPerLine = 16
	}
	if options.GroupSize <= 0 {
		options.GroupSize = 1
	}
	if options.OffsetWidth <= 0 {
		options.OffsetWidth = 8
	}

	lineCount := 0
	for offset := 0; offset < len(data); offset += options.BytesPerLine {
		if options.MaxLines > 0 && lineCount >= options.MaxLines {
			fmt.Fprintf(writer, "... %d more bytes\n", len(data)-offset)
			break
		}

		end := min(offset+options.BytesPerLine, len(data))
		formatLine(writer, data[offset:end], offset, options)

		lineCount++
	}
}

func (o HexDumpOptions) fg(color coloransi.ColorCode, s string) string {
	if o.NoColor {
		return s
	}
	return coloransi.Foreground(color, s)
}

func (o HexDumpOptions) highlighted(i int) bool {
	return o.Highlight != nil && o.Highlight(i)
}

func (o HexDumpOptions) hl(s string) string {
	if o.NoColor {
		return strings.ToUpper(s)
	}
	return coloransi.Color(o.HighlightColor, o.HighlightBackgroundColor, s)
}

// formatLine formats a single line of the hex dump; base is the index of data[0] in the whole dump
func formatLine(writer io.Writer, data []byte, base int, options HexDumpOptions) {
	if options.ShowOffset {
		offsetStr := fmt.Sprintf("%0"+strconv.Itoa(options.OffsetWidth)+"x", uint64(base)+options.StartOffset)
		fmt.Fprint(writer, options.fg(options.OffsetColor, offsetStr), "  ")
	}

	hexParts := formatHexValues(data, base, options)

	// Only show the mid-line divider once the line reaches past half of BytesPerLine.
	useSplit := options.BytesPerLine >= 8 && len(data) > (options.BytesPerLine/2)

	groupsPerLine := max(options.BytesPerLine/options.GroupSize, 1)
	leftGroups := min(groupsPerLine/2, len(hexParts))

	if useSplit && leftGroups > 0 && leftGroups < len(hexParts) {
		fmt.Fprint(writer, strings.Join(hexParts[:leftGroups], " "), " | ", strings.Join(hexParts[leftGroups:], " "))
	} else {
		fmt.Fprint(writer, strings.Join(hexParts, " "))
	}

	// pad short lines so the ASCII column stays aligned
	if options.BytesPerLine > len(data) {
		fullGroups := (options.BytesPerLine + options.GroupSize - 1) / options.GroupSize
		curGroups := (len(data) + options.GroupSize - 1) / options.GroupSize
		missingBytes := options.BytesPerLine - len(data)

		deltaSpaces := (fullGroups - 1) - max(0, curGroups-1)

		pipeFull := 0
		if options.BytesPerLine >= 8 {
			pipeFull = 3
		}
		pipeCur := 0
		if useSplit {
			pipeCur = 3
		}

		if paddingSize := missingBytes*2 + deltaSpaces + (pipeFull - pipeCur); paddingSize > 0 {
			fmt.Fprint(writer, strings.Repeat(" ", paddingSize))
		}
	}

	if options.ShowASCII {
		fmt.Fprint(writer, " | ")

		midPoint := options.BytesPerLine / 2
		if options.BytesPerLine >= 8 && len(data) > midPoint {
			formatASCII(writer, data[:midPoint], base, options)
			fmt.Fprint(writer, " ")
			formatASCII(writer, data[midPoint:], base+midPoint, options)
		} else {
			formatASCII(writer, data, base, options)
		}
	}

	if options.PointerCheck != nil && len(data) >= 8 {
		var ptrs []string
		for at := 0; at+8 <= len(data) && at <= 8; at += 8 {
			ptr := binary.LittleEndian.Uint64(data[at : at+8])
			if options.PointerCheck(ptr) {
				ptrs = append(ptrs, options.fg(coloransi.Yellow, fmt.Sprintf("0x%x", ptr)))
			}
		}
		if len(ptrs) > 0 {
			fmt.Fprint(writer, " | ", strings.Join(ptrs, " "))
		}
	}

	fmt.Fprintln(writer)
}

// formatASCII formats the ASCII part of a hex dump line
func formatASCII(writer io.Writer, data []byte, base int, options HexDumpOptions) {
	for i, b := range data {
		c := rune(b)
		printable := c <= unicode.MaxASCII && unicode.IsPrint(c)

		switch {
		case options.highlighted(base + i):
			if printable {
				fmt.Fprint(writer, options.hl(string(c)))
			} else {
				fmt.Fprint(writer, options.hl("."))
			}
		case b == 0:
			fmt.Fprint(writer, options.fg(options.ZeroColor, "."))
		case !printable:
			fmt.Fprint(writer, options.fg(options.NonPrintableColor, "."))
		default:
			fmt.Fprint(writer, options.fg(options.ASCIIColor, string(c)))
		}
	}
}

// formatHexValues formats the hex values part of the line with proper grouping and highlighting
func formatHexValues(data []byte, base int, options HexDumpOptions) []string {
	var result []string
	var groupBuffer []string

	for i, b := range data {
		hexValue := fmt.Sprintf("%02x", b)

		var coloredHex string
		switch {
		case options.highlighted(base + i):
			coloredHex = options.hl(hexValue)
		case b == 0:
			coloredHex = options.fg(options.ZeroColor, hexValue)
		default:
			coloredHex = options.fg(options.HexColor, hexValue)
		}

		groupBuffer = append(groupBuffer, coloredHex)

		if (i+1)%options.GroupSize == 0 || i == len(data)-1 {
			result = append(result, strings.Join(groupBuffer, ""))
			groupBuffer = nil
		}
	}

	return result
}

// MatchHighlight returns a Highlight predicate for a pattern match that
// starts at index matchOffset of the dumped data. Only bytes the pattern
// constrains are highlighted.
func MatchHighlight(matchOffset int, p *pattern.Pattern) func(i int) bool {
	_, masks := p.Bytes()
	start := matchOffset + p.SearchOffset()
	return func(i int) bool {
		j := i - start
		if j < 0 || j >= len(masks) {
			return false
		}
		return masks[j] != 0
	}
}

// DumpMatch dumps data, which starts at address base, highlighting a match of
// p found at index matchOffset.
func DumpMatch(data []byte, base uint64, matchOffset int, p *pattern.Pattern) string {
	return NewHexDump().SetStartOffset(base).DumpMatch(data, matchOffset, p)
}

// HexDump is a convenient wrapper around the Dump function with default options
type HexDump struct {
	Options HexDumpOptions
}

// NewHexDump creates a new HexDump with default options
func NewHexDump() *HexDump {
	return &HexDump{
		Options: DefaultOptions(),
	}
}

// SetBytesPerLine sets the number of bytes per line
func (h *HexDump) SetBytesPerLine(value int) *HexDump {
	h.Options.BytesPerLine = value
	return h
}

// SetGroupSize sets the grouping size for bytes
func (h *HexDump) SetGroupSize(value int) *HexDump {
	h.Options.GroupSize = value
	return h
}

// SetStartOffset sets the address of the first byte
func (h *HexDump) SetStartOffset(value uint64) *HexDump {
	h.Options.StartOffset = value
	return h
}

// SetOffsetWidth sets the width of the offset column
func (h *HexDump) SetOffsetWidth(value int) *HexDump {
	h.Options.OffsetWidth = value
	return h
}

// SetNoColor turns ANSI colors off
func (h *HexDump) SetNoColor(value bool) *HexDump {
	h.Options.NoColor = value
	return h
}

// SetHighlight sets the highlight predicate
func (h *HexDump) SetHighlight(highlight func(i int) bool) *HexDump {
	h.Options.Highlight = highlight
	return h
}

// SetMaxLines sets the maximum number of lines to display
func (h *HexDump) SetMaxLines(value int) *HexDump {
	h.Options.MaxLines = value
	return h
}

// SetPointerCheck annotates lines with values accepted by check
func (h *HexDump) SetPointerCheck(check func(ptr uint64) bool) *HexDump {
	h.Options.PointerCheck = check
	return h
}

// Dump dumps the data with current options
func (h *HexDump) Dump(data []byte) string {
	return Dump(data, h.Options)
}

// DumpToWriter writes the hex dump to the specified writer
func (h *HexDump) DumpToWriter(writer io.Writer, data []byte) {
	DumpToWriter(writer, data, h.Options)
}

// DumpMatch dumps data with the bytes of a match of p at matchOffset highlighted
func (h *HexDump) DumpMatch(data []byte, matchOffset int, p *pattern.Pattern) string {
	options := h.Options
	options.Highlight = MatchHighlight(matchOffset, p)
	return Dump(data, options)
}
