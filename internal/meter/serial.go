package meter

import (
	"fmt"

	serial "github.com/daedaluz/goserial"
)

// OpenSerialPort opens device and configures it 9600 8N1 raw, the
// fixed line configuration every EDL21 meter's optical head speaks.
func OpenSerialPort(device string) (Port, error) {
	port, err := serial.Open(device, nil)
	if err != nil {
		return nil, fmt.Errorf("meter: open %s: %w", device, err)
	}

	attrs, err := port.GetAttr()
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("meter: get attrs for %s: %w", device, err)
	}

	attrs.MakeRaw()
	attrs.Cflag &^= serial.CSIZE | serial.CBAUD
	attrs.Cflag |= serial.CS8 | serial.CLOCAL | serial.CREAD | serial.B9600

	if err := port.SetAttr(serial.TCSANOW, attrs); err != nil {
		port.Close()
		return nil, fmt.Errorf("meter: set attrs for %s: %w", device, err)
	}

	return port, nil
}
