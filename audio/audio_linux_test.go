package audio

import (
	"strings"
	"testing"

	"github.com/jfreymuth/pulse/proto"
)

func TestSourceInfo(t *testing.T) {
	d := sourceInfo("alsa_input.usb", "USB Mic", make(proto.ChannelMap, 2), 48000)
	if d.Channels != 2 || d.SampleRate != 48000 || d.ID != "alsa_input.usb" || d.Name != "USB Mic" {
		t.Errorf("sourceInfo = %+v", d)
	}
	if got := describe(d); !strings.Contains(got, "2 ch, 48000 Hz") {
		t.Errorf("describe = %q", got)
	}
}
