package cauldron

// nextBlock decodes the next frame into a Block, reusing buf's backing
// array where possible. A nil block with a nil error means clean end of
// stream.
func (f *flacReader) nextBlock(buf []int32) (*block, []int32, error) {
	return decodeNextFrame(f.br, buf, &f.info)
}
