package pattern

// Find returns the smallest position pos such that the pattern matches
// memory starting at pos+SearchOffset(). The last legal start is inclusive.
func (p *Pattern) Find(memory []byte) (int, bool) {
	n := len(p.elements)
	off := p.searchOffset

	if n == 0 || off > len(memory) || n > len(memory)-off {
		return -1, false
	}
	lastPos := len(memory) - off - n

	first := p.elements[0]
	last := p.elements[n-1]

	for pos := 0; pos <= lastPos; pos++ {
		window := memory[pos+off : pos+off+n]

		// anchors first; most positions fail here
		if !first.Match(window[0]) || !last.Match(window[n-1]) {
			continue
		}

		matched := true
		for i := 1; i < n-1; i++ {
			if !p.elements[i].Match(window[i]) {
				matched = false
				break
			}
		}

		if matched {
			return pos, true
		}
	}

	return -1, false
}
