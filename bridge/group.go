package bridge

import (
	"strconv"

	"github.com/BertoldVdb/ADMXBridge/admx"
)

type argKind int

const (
	argFloat argKind = iota
	argInt
	argEnum
)

// descriptor describes a scalar setting that is read with the keyword alone
// and written with the keyword and one value.
type descriptor struct {
	keyword   string
	readOp    admx.Opcode
	writeOp   admx.Opcode
	readKind  argKind
	writeKind argKind
	scale     float32
	suffix    string
	labels    []string
}

var groupCommands = map[string]*descriptor{}

func init() {
	for _, d := range []*descriptor{
		{keyword: "frequency", readOp: admx.OpFrequency, writeOp: admx.OpFrequency, readKind: argFloat, writeKind: argFloat, scale: 1000, suffix: "kHz"},
		{keyword: "magnitude", readOp: admx.OpMagnitude, writeOp: admx.OpMagnitude, readKind: argFloat, writeKind: argFloat},
		{keyword: "offset", readOp: admx.OpOffset, writeOp: admx.OpOffset, readKind: argFloat, writeKind: argFloat},
		{keyword: "average", readOp: admx.OpAverage, writeOp: admx.OpAverage, readKind: argInt, writeKind: argInt},
		{keyword: "display", readOp: admx.OpDisplay, writeOp: admx.OpDisplay, readKind: argInt, writeKind: argInt},
		{keyword: "mdelay", readOp: admx.OpMDelay, writeOp: admx.OpMDelay, readKind: argFloat, writeKind: argFloat, suffix: "msec"},
		{keyword: "tdelay", readOp: admx.OpTDelay, writeOp: admx.OpTDelay, readKind: argFloat, writeKind: argFloat, suffix: "msec"},
		{keyword: "count", readOp: admx.OpCount, writeOp: admx.OpCount, readKind: argInt, writeKind: argInt},
		{keyword: "tcount", readOp: admx.OpTCount, writeOp: admx.OpTCount, readKind: argInt, writeKind: argInt},
		{keyword: "gpio_ctrl", readOp: admx.OpSetGPIO, writeOp: admx.OpSetGPIO, readKind: argInt, writeKind: argInt},
		{keyword: "trig_mode", readOp: admx.OpTriggerMode, writeOp: admx.OpTriggerMode, readKind: argEnum, writeKind: argEnum, labels: []string{"internal", "external"}},
		{keyword: "sweep_scale", readOp: admx.OpSweepScale, writeOp: admx.OpSweepScale, readKind: argEnum, writeKind: argEnum, labels: []string{"linear", "log"}},
		{keyword: "sweep_type", readOp: admx.OpSweepType, writeOp: admx.OpSweepType, readKind: argEnum, writeKind: argEnum, labels: []string{"off", "frequency", "magnitude", "offset"}},
		{keyword: "temperature", readOp: admx.OpTemperature, writeOp: admx.OpCelsius, readKind: argFloat, writeKind: argEnum, labels: []string{"fht", "cls"}},
	} {
		if d.scale == 0 {
			d.scale = 1
		}
		groupCommands[d.keyword] = d
	}
}

func (d *descriptor) label(v uint32) (string, bool) {
	if v >= uint32(len(d.labels)) {
		return "", false
	}
	return d.labels[v], true
}

func (d *descriptor) parseEnum(arg string) (uint32, bool) {
	for i, l := range d.labels {
		if l == arg {
			return uint32(i), true
		}
	}
	return 0, false
}

func (b *Bridge) group(out *Output, d *descriptor, t Tokens) {
	if t[1] == "" {
		b.groupRead(out, d)
	} else {
		b.groupWrite(out, d, t[1])
	}
	out.Delimiter()
}

func (b *Bridge) groupRead(out *Output, d *descriptor) {
	opcode := d.readOp.Read()

	v, s := b.read(opcode, 0)
	if !report(out, s, "Hardware error1", opcode) {
		return
	}

	switch d.readKind {
	case argFloat:
		out.Line("%s = %.4f%s", d.keyword, admx.WordFloat32(v)/d.scale, d.suffix)
	case argInt:
		out.Line("%s = %d%s", d.keyword, v, d.suffix)
	case argEnum:
		if l, ok := d.label(v); ok {
			out.Line("%s = %s", d.keyword, l)
		} else {
			out.Line("%s = Error : Can't find enum", d.keyword)
		}
	}
}

func (b *Bridge) groupWrite(out *Output, d *descriptor, arg string) {
	var data uint32
	var echo string

	switch d.writeKind {
	case argFloat:
		f, err := strconv.ParseFloat(arg, 32)
		if err != nil {
			out.Line("Error : Wrong number format")
			return
		}
		data = admx.Float32Word(float32(f) * d.scale)
		echo = strconv.FormatFloat(float64(float32(f)), 'f', 4, 32) + d.suffix

	case argInt:
		i, err := strconv.ParseUint(arg, 10, 32)
		if err != nil {
			out.Line("Error : Wrong number format")
			return
		}
		data = uint32(i)
		echo = strconv.FormatUint(uint64(data), 10) + d.suffix

	case argEnum:
		v, ok := d.parseEnum(arg)
		if !ok {
			out.Line("Error : Wrong enum argument")
			return
		}
		data = v
		echo = arg
	}

	s := b.write(d.writeOp, 0, data)
	if report(out, s, "Wrong arguments", d.writeOp) {
		out.Line("%s = %s", d.keyword, echo)
	}
}
