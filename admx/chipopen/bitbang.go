package chipopen

// bitBang clocks SPI mode 0, MSB first, over plain GPIO callbacks. The clock
// idles low, MOSI is set up while the clock is low and the slave samples it on
// the rising edge.
type bitBang struct {
	write func(sck bool, mosi bool) error
	read  func() (bool, error)
}

func (b *bitBang) transfer(out byte) (byte, error) {
	var in byte

	for i := 7; i >= 0; i-- {
		mosi := out&(1<<uint(i)) != 0

		if err := b.write(false, mosi); err != nil {
			return 0, err
		}

		miso, err := b.read()
		if err != nil {
			return 0, err
		}

		if err := b.write(true, mosi); err != nil {
			return 0, err
		}

		in <<= 1
		if miso {
			in |= 1
		}
	}

	return in, b.write(false, out&1 != 0)
}
