package proc

import "encoding/binary"

// TrapFrameSize is the number of bytes a trap frame occupies at the top of
// a kernel stack.
const TrapFrameSize = 4 * 12

// TrapFrame holds the user-mode registers saved on entry to the kernel.
type TrapFrame struct {
	EAX    uint32 `json:"eax"`
	EBX    uint32 `json:"ebx"`
	ECX    uint32 `json:"ecx"`
	EDX    uint32 `json:"edx"`
	ESI    uint32 `json:"esi"`
	EDI    uint32 `json:"edi"`
	EBP    uint32 `json:"ebp"`
	ESP    uint32 `json:"esp"`
	EIP    uint32 `json:"eip"`
	CS     uint32 `json:"cs"`
	DS     uint32 `json:"ds"`
	EFlags uint32 `json:"eflags"`
}

// FlagIF is the interrupt-enable bit of EFlags.
const FlagIF = 0x200

// Encode writes the frame into dest (little endian), dest must hold TrapFrameSize bytes
func (f *TrapFrame) Encode(dest []byte) {
	values := f.registers()
	for i, v := range values {
		binary.LittleEndian.PutUint32(dest[i*4:], v)
	}
}

// Decode reads a frame previously written by Encode
func (f *TrapFrame) Decode(src []byte) {
	values := make([]uint32, TrapFrameSize/4)
	for i := range values {
		values[i] = binary.LittleEndian.Uint32(src[i*4:])
	}
	f.EAX, f.EBX, f.ECX, f.EDX = values[0], values[1], values[2], values[3]
	f.ESI, f.EDI, f.EBP, f.ESP = values[4], values[5], values[6], values[7]
	f.EIP, f.CS, f.DS, f.EFlags = values[8], values[9], values[10], values[11]
}

func (f *TrapFrame) registers() []uint32 {
	return []uint32{f.EAX, f.EBX, f.ECX, f.EDX, f.ESI, f.EDI, f.EBP, f.ESP, f.EIP, f.CS, f.DS, f.EFlags}
}

// Context holds callee-save registers of a record that is not running.
type Context struct {
	EDI uint32
	ESI uint32
	EBX uint32
	EBP uint32
	EIP uint32
}
