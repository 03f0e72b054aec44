package domain

// BoxSource discriminates the two kinds of boxes that can appear in a merged
// annotation list: candidates shipped with the image versus boxes a
// contributor drew themselves.
type BoxSource string

const (
	BoxSourceGroundTruth BoxSource = "ground_truth"
	BoxSourceUser        BoxSource = "user"
)

// BoxStatus is the contributor's verdict on a ground-truth box. User-drawn
// boxes never carry a status; they are deleted instead of rejected.
type BoxStatus string

const (
	BoxStatusUndecided BoxStatus = ""
	BoxStatusConfirmed BoxStatus = "confirmed"
	BoxStatusRejected  BoxStatus = "rejected"
)

// Box is one axis-aligned rectangular obstruction mark.
type Box struct {
	ID     string    `json:"id" bson:"id"`
	Source BoxSource `json:"source" bson:"source"`
	X      float64   `json:"x" bson:"x"`
	Y      float64   `json:"y" bson:"y"`
	Width  float64   `json:"width" bson:"width"`
	Height float64   `json:"height" bson:"height"`
	Label  string    `json:"label" bson:"label"`
	Status BoxStatus `json:"status,omitempty" bson:"status,omitempty"`
}
