package annotation

import "strings"

// Option is one enumerated obstruction type: a machine value and a display
// label.
type Option struct {
	Value string
	Label string
}

// OtherOption is the select entry that switches the classifier into
// free-text mode.
const OtherOption = "OTHER_CUSTOM"

// DefaultVocabulary is the enumerated obstruction vocabulary used on the
// annotation surface.
var DefaultVocabulary = Vocabulary{
	{Value: "bench", Label: "Bench"},
	{Value: "car", Label: "Car"},
	{Value: "construction_materials", Label: "Construction Materials"},
	{Value: "cracked_pavement", Label: "Cracked Pavement"},
	{Value: "garbage", Label: "Garbage"},
	{Value: "lamp_post", Label: "Lamp Post"},
	{Value: "motorcycle", Label: "Motorcycle"},
	{Value: "potted_plant", Label: "Potted Plant"},
	{Value: "street_sign", Label: "Street Sign"},
	{Value: "street_vendor_cart", Label: "Street Vendor Cart"},
	{Value: "tree", Label: "Tree"},
	{Value: "tricycle", Label: "Tricycle"},
	{Value: "utility_post", Label: "Utility Post"},
}

// Vocabulary is an ordered list of obstruction options.
type Vocabulary []Option

// Exact returns the option whose machine value equals v, or nil.
func (voc Vocabulary) Exact(v string) *Option {
	for i := range voc {
		if voc[i].Value == v {
			return &voc[i]
		}
	}
	return nil
}

// Fuzzy returns the option v matches case-insensitively against the display
// label, or against the machine value with underscores read as spaces. A
// fuzzy hit is canonicalized to the machine value by the caller so typed
// variants of vocabulary entries don't drift into free-form labels.
func (voc Vocabulary) Fuzzy(v string) *Option {
	lowered := strings.ToLower(strings.TrimSpace(v))
	for i := range voc {
		if strings.ToLower(voc[i].Label) == lowered {
			return &voc[i]
		}
		if strings.ReplaceAll(voc[i].Value, "_", " ") == lowered {
			return &voc[i]
		}
	}
	return nil
}

// Display resolves a stored value to its human-readable form: the option
// label for vocabulary values, the verbatim text for custom labels.
func (voc Vocabulary) Display(v string) string {
	if opt := voc.Exact(v); opt != nil {
		return opt.Label
	}
	return v
}
