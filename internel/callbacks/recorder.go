package callbacks

import "iiobuf/pkg/iio"

// Recorder accumulates the samples of one channel over many refills, both
// as raw values and in physical units.
type Recorder struct {
	Channel *iio.Channel
	Track   []int64
	values  []float64
}

// Update appends the samples of the last refill of b.
func (r *Recorder) Update(b *iio.Buffer) error {
	it, err := iio.NewIterator(b, r.Channel, iio.FormatLayout(r.Channel.Format()))
	if err != nil {
		return err
	}
	for v := range it.All() {
		r.Track = append(r.Track, v)
	}
	scaled, err := iio.ReadScaled(b, r.Channel)
	if err != nil {
		return err
	}
	r.values = append(r.values, scaled...)
	return nil
}

// Scaled returns the track multiplied by the channel scale.
func (r *Recorder) Scaled() []float64 {
	return r.values
}
