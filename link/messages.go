package link

// State is the game snapshot reported in a MsgState message.
type State struct {
	Lamps uint16
	Moves uint16
	Best  uint16
}

// SendState frames a MsgState report.
func (t *Transport) SendState(s State) {
	t.SendMessage(MsgState, func(output OutputBuffer) {
		EncodeUint(output, uint32(s.Lamps))
		EncodeUint(output, uint32(s.Moves))
		EncodeUint(output, uint32(s.Best))
	})
}

// ParseState decodes MsgState arguments.
func ParseState(data *[]byte) (State, error) {
	var s State
	for _, dst := range []*uint16{&s.Lamps, &s.Moves, &s.Best} {
		v, err := DecodeUint(data)
		if err != nil {
			return State{}, err
		}
		*dst = uint16(v)
	}
	return s, nil
}

// SendKey frames a MsgKey injection request.
func (t *Transport) SendKey(code uint8) {
	t.SendMessage(MsgKey, func(output OutputBuffer) {
		EncodeUint(output, uint32(code))
	})
}

// ParseKey decodes MsgKey arguments.
func ParseKey(data *[]byte) (uint8, error) {
	v, err := DecodeUint(data)
	return uint8(v), err
}

// SendSaveData frames a MsgSaveData transfer of the save slot bytes.
func (t *Transport) SendSaveData(slot []byte) {
	t.SendMessage(MsgSaveData, func(output OutputBuffer) {
		EncodeBytes(output, slot)
	})
}

// ParseSaveData decodes MsgSaveData arguments.
func ParseSaveData(data *[]byte) ([]byte, error) {
	return DecodeBytes(data)
}

// SendLog frames a MsgLog text line. The debug writer on target wires
// core.Debugf output through this.
func (t *Transport) SendLog(text string) {
	t.SendMessage(MsgLog, func(output OutputBuffer) {
		EncodeString(output, text)
	})
}

// ParseLog decodes MsgLog arguments.
func ParseLog(data *[]byte) (string, error) {
	return DecodeString(data)
}
