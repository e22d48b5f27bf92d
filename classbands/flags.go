package classbands

// JVM access-flag bits shared by class, field and method flag words. Not
// every bit is legal in every context; the classfile assembler masks
// accordingly when it writes them out.
const (
	AccPublic       uint32 = 0x0001
	AccPrivate      uint32 = 0x0002
	AccProtected    uint32 = 0x0004
	AccStatic       uint32 = 0x0008
	AccFinal        uint32 = 0x0010
	AccSynchronized uint32 = 0x0020
	AccSuper        uint32 = 0x0020 // class-only alias of AccSynchronized's bit
	AccVolatile     uint32 = 0x0040
	AccBridge       uint32 = 0x0040 // method-only alias
	AccTransient    uint32 = 0x0080
	AccVarargs      uint32 = 0x0080 // method-only alias
	AccNative       uint32 = 0x0100
	AccInterface    uint32 = 0x0200
	AccAbstract     uint32 = 0x0400
	AccStrict       uint32 = 0x0800
	AccSynthetic    uint32 = 0x1000
	AccAnnotation   uint32 = 0x2000
	AccEnum         uint32 = 0x4000

	// attrFlagSynthetic and attrFlagDeprecated borrow bits 16 and 17 of
	// the flag word to record the presence of the matching marker
	// attribute, the same trick real Pack200 uses so the common case
	// needs no attribute-index band entry at all.
	attrFlagDeprecated uint32 = 1 << 17
	attrFlagSynthetic  uint32 = 1 << 16
)

// readFlagWord combines a low 16-bit band with an optional high-order
// band into a single 32-bit word: flag bands only widen past 16 bits
// when an archive actually needs bits beyond that range.
func readFlagWord(lo int32, hi int32, haveHi bool) uint32 {
	w := uint32(uint16(lo))
	if haveHi {
		w |= uint32(uint16(hi)) << 16
	}

	return w
}
