package vban

import "fmt"

type strip struct {
	c *Client
	i int
}

func (s *strip) Label() (label string) {
	s.c.read(func(b *rtBody) { label = cString(b.StripLabel[s.i][:]) })
	return label
}

func (s *strip) Gain() (gain float64) {
	s.c.read(func(b *rtBody) { gain = dB(b.StripGain[0][s.i]) })
	return gain
}

func (s *strip) SetGain(gain float64) {
	s.c.write(fmt.Sprintf("Strip[%d].Gain=%.1f;", s.i, gain), func(b *rtBody) {
		b.StripGain[0][s.i] = dB100(gain)
	})
}

func (s *strip) Mute() (mute bool) {
	s.c.read(func(b *rtBody) { mute = b.StripState[s.i]&stateMute != 0 })
	return mute
}

func (s *strip) SetMute(mute bool) {
	s.c.write(fmt.Sprintf("Strip[%d].Mute=%d;", s.i, btoi(mute)), func(b *rtBody) {
		setBit(&b.StripState[s.i], stateMute, mute)
	})
}

func (s *strip) routeBit(bus int) (string, uint32, bool) {
	k := s.c.kind
	names := k.BusNames()
	if bus < 0 || bus >= len(names) {
		return "", 0, false
	}
	if bus < k.PhysOut {
		return names[bus], physRouteBits[bus], true
	}
	return names[bus], virtRouteBits[bus-k.PhysOut], true
}

func (s *strip) Route(bus int) (on bool) {
	_, bit, ok := s.routeBit(bus)
	if !ok {
		return false
	}
	s.c.read(func(b *rtBody) { on = b.StripState[s.i]&bit != 0 })
	return on
}

func (s *strip) SetRoute(bus int, on bool) {
	name, bit, ok := s.routeBit(bus)
	if !ok {
		log.Warnf("busIndex %v is out of range", bus)
		return
	}
	s.c.write(fmt.Sprintf("Strip[%d].%s=%d;", s.i, name, btoi(on)), func(b *rtBody) {
		setBit(&b.StripState[s.i], bit, on)
	})
}

func (s *strip) GainLayer(layer int) (gain float64) {
	if layer < 0 || layer >= numLayers {
		return 0
	}
	s.c.read(func(b *rtBody) { gain = dB(b.StripGain[layer][s.i]) })
	return gain
}

func (s *strip) SetGainLayer(layer int, gain float64) {
	if layer < 0 || layer >= numLayers {
		log.Warnf("gain layer %v is out of range", layer)
		return
	}
	s.c.write(fmt.Sprintf("Strip[%d].GainLayer[%d]=%.1f;", s.i, layer, gain), func(b *rtBody) {
		b.StripGain[layer][s.i] = dB100(gain)
	})
}

type bus struct {
	c *Client
	i int
}

func (u *bus) Label() (label string) {
	u.c.read(func(b *rtBody) { label = cString(b.BusLabel[u.i][:]) })
	return label
}

func (u *bus) Gain() (gain float64) {
	u.c.read(func(b *rtBody) { gain = dB(b.BusGain[u.i]) })
	return gain
}

func (u *bus) SetGain(gain float64) {
	u.c.write(fmt.Sprintf("Bus[%d].Gain=%.1f;", u.i, gain), func(b *rtBody) {
		b.BusGain[u.i] = dB100(gain)
	})
}

func (u *bus) state(bit uint32) (on bool) {
	u.c.read(func(b *rtBody) { on = b.BusState[u.i]&bit != 0 })
	return on
}

func (u *bus) setState(param string, bit uint32, on bool) {
	u.c.write(fmt.Sprintf("Bus[%d].%s=%d;", u.i, param, btoi(on)), func(b *rtBody) {
		setBit(&b.BusState[u.i], bit, on)
	})
}

func (u *bus) Mute() bool { return u.state(stateMute) }
func (u *bus) SetMute(mute bool) { u.setState("Mute", stateMute, mute) }
func (u *bus) Mono() bool { return u.state(stateMono) }
func (u *bus) SetMono(mono bool) { u.setState("Mono", stateMono, mono) }
func (u *bus) EQ() bool { return u.state(stateEQ) }
func (u *bus) SetEQ(on bool) { u.setState("EQ.on", stateEQ, on) }
