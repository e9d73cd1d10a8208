package imagery

import (
	"regexp"
	"strings"
)

// ImageType selects the structure rendering requested from the image webhook.
type ImageType string

const (
	Image2D ImageType = "2d"
	Image3D ImageType = "3d"
)

// Confidence grades how strongly the text asks for a structure image.
type Confidence string

const (
	High   Confidence = "high"
	Medium Confidence = "medium"
	Low    Confidence = "low"
)

// UnknownCompound is reported when no compound could be identified.
const UnknownCompound = "unknown"

// Result is the outcome of Detect.
type Result struct {
	NeedsImage bool       `json:"needsImage"`
	ImageType  ImageType  `json:"imageType"`
	Compound   string     `json:"compound"`
	Confidence Confidence `json:"confidence"`
}

// Order matters: the first hit wins.
var visualKeywords = []string{
	"structure", "molecular", "molecule", "draw", "show me", "visualize", "visualise",
	"diagram", "image", "picture", "render", "2d", "3d", "skeletal", "ball and stick",
}

var namedCompounds = []string{
	"caffeine", "aspirin", "ibuprofen", "paracetamol", "acetaminophen", "penicillin",
	"morphine", "dopamine", "serotonin", "adrenaline", "epinephrine", "insulin",
	"metformin", "warfarin", "nicotine", "glucose", "ethanol", "benzene", "cholesterol",
	"testosterone", "estradiol", "codeine", "naloxone", "atorvastatin", "omeprazole",
}

// formulaPattern matches tokens built from element symbols such as H2O or C6H12O6.
var formulaPattern = regexp.MustCompile(`\b(?:[A-Z][a-z]?\d*)+\b`)

// Detect decides whether the user text asks for a molecular image.
// A keyword hit or a compound hit alone is enough.
func Detect(text string) Result {
	normalized := strings.ToLower(strings.TrimSpace(text))

	result := Result{
		ImageType:  Image2D,
		Compound:   UnknownCompound,
		Confidence: Low,
	}
	if normalized == "" {
		return result
	}

	if strings.Contains(normalized, "3d") {
		result.ImageType = Image3D
	}

	keywordHit := firstContained(normalized, visualKeywords) != ""

	compound := firstContained(normalized, namedCompounds)
	compoundHit := compound != ""
	if compoundHit {
		result.Compound = compound
	} else if formula := firstFormula(text); formula != "" {
		result.Compound = formula
	}

	result.NeedsImage = keywordHit || compoundHit
	switch {
	case keywordHit && compoundHit:
		result.Confidence = High
	case keywordHit || compoundHit:
		result.Confidence = Medium
	}

	return result
}

func firstContained(normalized string, candidates []string) string {
	for _, candidate := range candidates {
		if strings.Contains(normalized, candidate) {
			return candidate
		}
	}
	return ""
}

// firstFormula ignores capitalised words: only tokens carrying a digit count.
func firstFormula(text string) string {
	for _, token := range formulaPattern.FindAllString(text, -1) {
		if strings.ContainsAny(token, "0123456789") {
			return token
		}
	}
	return ""
}
