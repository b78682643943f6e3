package clinical

import (
	"strings"
	"unicode"
)

// Canonical body part labels.
const (
	Head          = "HEAD"
	Neck          = "NECK"
	Chest         = "CHEST"
	Heart         = "HEART"
	LeftLung      = "LEFT LUNG"
	RightLung     = "RIGHT LUNG"
	Abdomen       = "ABDOMEN"
	Stomach       = "STOMACH"
	Liver         = "LIVER"
	LeftKidney    = "LEFT KIDNEY"
	RightKidney   = "RIGHT KIDNEY"
	LeftShoulder  = "LEFT SHOULDER"
	RightShoulder = "RIGHT SHOULDER"
	LeftArm       = "LEFT ARM"
	RightArm      = "RIGHT ARM"
	LeftForearm   = "LEFT FOREARM"
	RightForearm  = "RIGHT FOREARM"
	LeftThigh     = "LEFT THIGH"
	RightThigh    = "RIGHT THIGH"
	LeftShin      = "LEFT SHIN"
	RightShin     = "RIGHT SHIN"
	Spine         = "SPINE"
	Pelvis        = "PELVIS"
	Other         = "OTHER"
)

// Sections group body parts coarsely.
const (
	SectionHead  = "HEAD"
	SectionArm   = "ARM"
	SectionHeart = "HEART"
	SectionOther = "OTHER"
)

// BodyPart pairs a canonical label with the camelCase key clients use.
type BodyPart struct {
	Label string
	Key   string
}

// BodyParts lists every canonical body part in display order.
var BodyParts = []BodyPart{
	{Head, "head"},
	{Neck, "neck"},
	{Chest, "chest"},
	{Heart, "heart"},
	{LeftLung, "leftLung"},
	{RightLung, "rightLung"},
	{Abdomen, "abdomen"},
	{Stomach, "stomach"},
	{Liver, "liver"},
	{LeftKidney, "leftKidney"},
	{RightKidney, "rightKidney"},
	{LeftShoulder, "leftShoulder"},
	{RightShoulder, "rightShoulder"},
	{LeftArm, "leftArm"},
	{RightArm, "rightArm"},
	{LeftForearm, "leftForearm"},
	{RightForearm, "rightForearm"},
	{LeftThigh, "leftThigh"},
	{RightThigh, "rightThigh"},
	{LeftShin, "leftShin"},
	{RightShin, "rightShin"},
	{Spine, "spine"},
	{Pelvis, "pelvis"},
	{Other, "other"},
}

var (
	labelsByKey  = make(map[string]string, len(BodyParts))
	keysByLabel  = make(map[string]string, len(BodyParts))
	squashedKeys = make(map[string]string, len(BodyParts))
)

func init() {
	for _, bp := range BodyParts {
		labelsByKey[bp.Key] = bp.Label
		keysByLabel[bp.Label] = bp.Key
		squashedKeys[squash(bp.Label)] = bp.Label
	}
}

// LabelForKey resolves a client-supplied key strictly: a camelCase key
// ("leftArm"), a canonical label ("LEFT ARM") or a snake/kebab variant
// ("left_arm", "left-arm"). Free text is not accepted here.
func LabelForKey(key string) (string, bool) {
	if label, ok := labelsByKey[key]; ok {
		return label, true
	}
	label, ok := squashedKeys[squash(key)]
	return label, ok
}

// KeyForLabel returns the camelCase key for a canonical label.
func KeyForLabel(label string) (string, bool) {
	key, ok := keysByLabel[label]
	return key, ok
}

// squash lowercases and drops separators so "LEFT ARM", "left_arm",
// "left-arm" and "leftArm" all compare equal.
func squash(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

type partRule struct {
	words []string
	left  string
	right string
	// either is used when the text names no side.
	either string
}

// When two rules match at the same position the earlier rule wins.
var partRules = []partRule{
	{words: []string{"HEART", "CARDIAC", "CARDIO", "PRECORDIAL", "PRECORDIUM"}, either: Heart},
	{words: []string{"LUNG", "LUNGS", "PULMONARY"}, left: LeftLung, right: RightLung, either: Chest},
	{words: []string{"KIDNEY", "KIDNEYS", "RENAL", "FLANK"}, left: LeftKidney, right: RightKidney, either: Abdomen},
	{words: []string{"LIVER", "HEPATIC"}, either: Liver},
	{words: []string{"STOMACH", "GASTRIC", "EPIGASTRIC", "EPIGASTRIUM"}, either: Stomach},
	{words: []string{"HEAD", "SKULL", "SCALP", "CRANIUM", "CRANIAL", "FACE", "FACIAL", "FOREHEAD", "BRAIN"}, either: Head},
	{words: []string{"NECK", "THROAT", "CERVICAL"}, either: Neck},
	{words: []string{"SHOULDER", "SHOULDERS", "CLAVICLE"}, left: LeftShoulder, right: RightShoulder, either: Other},
	{words: []string{"FOREARM", "FOREARMS", "WRIST", "WRISTS", "HAND", "HANDS"}, left: LeftForearm, right: RightForearm, either: Other},
	{words: []string{"ARM", "ARMS", "ELBOW", "ELBOWS", "BICEP", "BICEPS", "HUMERUS"}, left: LeftArm, right: RightArm, either: Other},
	{words: []string{"THIGH", "THIGHS", "FEMUR", "KNEE", "KNEES"}, left: LeftThigh, right: RightThigh, either: Other},
	{words: []string{"SHIN", "SHINS", "CALF", "CALVES", "TIBIA", "ANKLE", "ANKLES", "FOOT", "FEET", "LEG", "LEGS"}, left: LeftShin, right: RightShin, either: Other},
	{words: []string{"SPINE", "SPINAL", "BACK", "LUMBAR", "THORACIC SPINE", "VERTEBRA", "VERTEBRAE"}, either: Spine},
	{words: []string{"PELVIS", "PELVIC", "HIP", "HIPS", "GROIN"}, either: Pelvis},
	{words: []string{"CHEST", "THORAX", "THORACIC", "BREAST", "RIBS", "RIB", "STERNUM"}, either: Chest},
	{words: []string{"ABDOMEN", "ABDOMINAL", "BELLY", "TUMMY", "BOWEL"}, either: Abdomen},
}

// CanonicalBodyPart maps free text naming a body part onto a canonical label.
// The region mentioned first in the text wins, so "chest pain radiating to
// left arm" is CHEST. Synonyms are recognized; a paired organ or limb named
// without a side falls back to its general area (lung to CHEST, kidney to
// ABDOMEN) or OTHER.
func CanonicalBodyPart(text string) string {
	words := strings.FieldsFunc(strings.ToUpper(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if len(words) == 0 {
		return Other
	}

	joined := " " + strings.Join(words, " ") + " "
	if _, ok := keysByLabel[strings.TrimSpace(joined)]; ok {
		return strings.TrimSpace(joined)
	}

	side := ""
	for _, w := range words {
		switch w {
		case "LEFT", "LT":
			side = "L"
		case "RIGHT", "RT":
			side = "R"
		}
		if side != "" {
			break
		}
	}

	var (
		match *partRule
		at    = -1
	)
	for i := range partRules {
		for _, w := range partRules[i].words {
			pos := strings.Index(joined, " "+w+" ")
			if pos < 0 || (at >= 0 && pos >= at) {
				continue
			}
			match, at = &partRules[i], pos
		}
	}

	switch {
	case match == nil:
		return Other
	case side == "L" && match.left != "":
		return match.left
	case side == "R" && match.right != "":
		return match.right
	default:
		return match.either
	}
}

// SectionFor derives the coarse section tag for a canonical label.
func SectionFor(label string) string {
	switch {
	case label == Head:
		return SectionHead
	case strings.Contains(label, "ARM"), strings.Contains(label, "SHOULDER"), strings.Contains(label, "WRIST"):
		return SectionArm
	case label == Heart:
		return SectionHeart
	default:
		return SectionOther
	}
}
