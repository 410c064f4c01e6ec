package traits

import "strings"

// Generated member names.
const (
	// SelfParam is the leading parameter of every helper method.
	SelfParam = "$self"
	// InitMethod is the helper method applying trait field defaults.
	InitMethod = "$init$"

	helperSuffix      = "$Trait$Helper"
	fieldHelperSuffix = "$Trait$FieldHelper"
	getSuffix         = "$get"
	setSuffix         = "$set"
)

// HelperName returns the name of the static helper class of trait.
func HelperName(trait string) string { return trait + helperSuffix }

// FieldHelperName returns the name of the field accessor interface of trait.
func FieldHelperName(trait string) string { return trait + fieldHelperSuffix }

// FieldGetter returns the accessor reading a trait field, e.g. "name$get".
func FieldGetter(field string) string { return field + getSuffix }

// FieldSetter returns the accessor writing a trait field, e.g. "name$set".
func FieldSetter(field string) string { return field + setSuffix }

// BackingField returns the private field an applying class stores a trait
// field in, e.g. "my_Greeter__name" for my.Greeter.
func BackingField(trait, field string) string {
	return strings.ReplaceAll(trait, ".", "_") + "__" + field
}
