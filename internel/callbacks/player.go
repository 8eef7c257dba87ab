package callbacks

import "iiobuf/pkg/iio"

// Player feeds Track into successive pushes of an output buffer. Once the
// track is exhausted the remaining samples are silence.
type Player struct {
	idx     int
	Channel *iio.Channel
	Track   []int64
}

// Update writes the next Capacity samples of the track into b.
func (p *Player) Update(b *iio.Buffer) error {
	out := make([]int64, b.Capacity())
	n := copy(out, p.Track[min(p.idx, len(p.Track)):])
	p.idx += n
	_, err := iio.WriteChannel(b, p.Channel, iio.FormatLayout(p.Channel.Format()), out)
	return err
}

func (p *Player) Done() bool {
	return p.idx >= len(p.Track)
}

func (p *Player) Reset() {
	p.idx = 0
}
