package simchip

import "github.com/moffa90/go-parbus/protocol"

type cmdState int

const (
	cmdIdle cmdState = iota
	cmdUnlock1
	cmdUnlock2
	cmdProgram
	cmdSetup
	cmdSetupUnlock1
	cmdSetupUnlock2
)

// Command cycles are decoded on A14-A0 only.
const cmdAddrMask uint16 = 0x7FFF

func isCycle(addr uint16, data byte, wantAddr uint16, wantData byte) bool {
	return addr&cmdAddrMask == wantAddr && data == wantData
}

// decode feeds one latched write to the command state machine and returns
// the command it completes, or 0. For CmdByteProgram the returned write is
// the program target itself. A write that breaks a sequence drops the
// decoder back to idle and is then decoded from idle.
func (c *Chip) decode(addr uint16, data byte) byte {
	switch c.cmd {
	case cmdUnlock1:
		if isCycle(addr, data, protocol.UnlockAddr2, protocol.UnlockData2) {
			c.cmd = cmdUnlock2
			return 0
		}
	case cmdUnlock2:
		if addr&cmdAddrMask == protocol.UnlockAddr1 {
			switch data {
			case protocol.CmdByteProgram:
				c.cmd = cmdProgram
				return 0
			case protocol.CmdEraseSetup:
				c.cmd = cmdSetup
				return 0
			case protocol.CmdEnterID, protocol.CmdExitID:
				c.cmd = cmdIdle
				return data
			}
		}
	case cmdProgram:
		c.cmd = cmdIdle
		return protocol.CmdByteProgram
	case cmdSetup:
		if isCycle(addr, data, protocol.UnlockAddr1, protocol.UnlockData1) {
			c.cmd = cmdSetupUnlock1
			return 0
		}
	case cmdSetupUnlock1:
		if isCycle(addr, data, protocol.UnlockAddr2, protocol.UnlockData2) {
			c.cmd = cmdSetupUnlock2
			return 0
		}
	case cmdSetupUnlock2:
		switch {
		case data == protocol.CmdSectorErase:
			c.cmd = cmdIdle
			return data
		case addr&cmdAddrMask == protocol.UnlockAddr1 &&
			(data == protocol.CmdChipErase || data == protocol.CmdDisableProtection):
			c.cmd = cmdIdle
			return data
		}
	}

	c.cmd = cmdIdle
	if isCycle(addr, data, protocol.UnlockAddr1, protocol.UnlockData1) {
		c.cmd = cmdUnlock1
	}
	return 0
}

// flashWrite handles a write cycle on a NOR flash. The array is never
// written directly; only a completed byte program changes it.
func (c *Chip) flashWrite(addr uint16, data byte) {
	if c.busy > 0 {
		return
	}
	if c.idMode && c.cmd == cmdIdle && data == protocol.CmdExitID {
		c.idMode = false
		return
	}

	switch c.decode(addr, data) {
	case protocol.CmdByteProgram:
		if c.idMode {
			return
		}
		// Programming can only clear bits.
		c.mem[c.index(addr)] &= data
		c.startBusy(c.config.ProgramPolls, ^data)
	case protocol.CmdChipErase:
		c.erase(0, len(c.mem))
	case protocol.CmdSectorErase:
		size := c.config.SectorSize
		if size <= 0 || size > len(c.mem) {
			size = len(c.mem)
		}
		base := c.index(addr) &^ (size - 1)
		c.erase(base, size)
	case protocol.CmdEnterID:
		c.idMode = true
	case protocol.CmdExitID:
		c.idMode = false
	}
}

// eepromWrite handles a write cycle on an AT28C256. The A0 sequence performs
// a protected write and enables software data protection; the 0x20 sequence
// disables it. Without protection every write reaches the array.
func (c *Chip) eepromWrite(addr uint16, data byte) {
	switch c.decode(addr, data) {
	case protocol.CmdByteProgram:
		c.protected = true
		c.store(addr, data)
		return
	case protocol.CmdDisableProtection:
		c.protected = false
		return
	}
	if !c.protected {
		c.store(addr, data)
	}
}

func (c *Chip) store(addr uint16, data byte) {
	c.mem[c.index(addr)] = data
	c.startBusy(c.config.ProgramPolls, ^data)
}

func (c *Chip) erase(base, size int) {
	for i := base; i < base+size; i++ {
		c.mem[i] = protocol.ErasedByte
	}
	// DQ7 reads 0 until the erase completes.
	c.startBusy(c.config.ErasePolls, 0x00)
}

func (c *Chip) startBusy(polls int, status byte) {
	if c.config.Stuck && polls < 1 {
		polls = 1
	}
	c.busy = polls
	c.busyValue = status
}
