package indy

import (
	"fmt"

	"github.com/chazu/dynlink/mop"
)

// SiteKind is the call-kind tag an emitter attaches to a call site.
type SiteKind uint8

const (
	KindMethod SiteKind = iota
	KindInit
	KindGetProperty
	KindSetProperty
)

// Site names accepted by Bootstrap.
const (
	SiteInvoke      = "invoke"
	SiteInit        = "init"
	SiteGetProperty = "getProperty"
	SiteSetProperty = "setProperty"
)

func (k SiteKind) String() string {
	switch k {
	case KindMethod:
		return SiteInvoke
	case KindInit:
		return SiteInit
	case KindGetProperty:
		return SiteGetProperty
	case KindSetProperty:
		return SiteSetProperty
	}
	return "unknown"
}

// ParseSiteKind maps a bootstrap site name to its kind.
func ParseSiteKind(name string) (SiteKind, error) {
	switch name {
	case SiteInvoke:
		return KindMethod, nil
	case SiteInit:
		return KindInit, nil
	case SiteGetProperty:
		return KindGetProperty, nil
	case SiteSetProperty:
		return KindSetProperty, nil
	}
	return 0, fmt.Errorf("unknown call-site name %q", name)
}

// SiteType is the static description of a call site: the argument count the
// emitter saw and the site flags.
type SiteType struct {
	ArgCount int
	Flags    mop.CallFlags
}

const (
	flagBits    = 8
	maxArgCount = 1<<24 - 1
)

// Encode packs the site type into the operand the emitter stores.
// Layout: argument count in the high 24 bits, flags in the low 8.
func (t SiteType) Encode() (uint32, error) {
	if t.ArgCount < 0 || t.ArgCount > maxArgCount {
		return 0, fmt.Errorf("argument count %d out of range", t.ArgCount)
	}
	return uint32(t.ArgCount)<<flagBits | uint32(t.Flags), nil
}

// DecodeSiteType unpacks an operand produced by Encode.
func DecodeSiteType(v uint32) SiteType {
	return SiteType{
		ArgCount: int(v >> flagBits),
		Flags:    mop.CallFlags(v & (1<<flagBits - 1)),
	}
}

func (t SiteType) String() string {
	var flags []byte
	if t.Flags.Has(mop.FlagSafe) {
		flags = append(flags, 's')
	}
	if t.Flags.Has(mop.FlagSpread) {
		flags = append(flags, '*')
	}
	if t.Flags.Has(mop.FlagThisCall) {
		flags = append(flags, 't')
	}
	return fmt.Sprintf("(%d)%s", t.ArgCount, flags)
}
