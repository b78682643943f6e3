package extraction

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/WailSalutem-Health-Care/emr-service/internal/apperr"
	"github.com/WailSalutem-Health-Care/emr-service/internal/clinical"
)

// MaxInputLength is the largest input, in characters, sent to the model.
const MaxInputLength = 10000

// checkInput rejects blank and oversized input before any prompt is built.
func checkInput(field, text string) error {
	if strings.TrimSpace(text) == "" {
		return apperr.Validationf("%s is required", field)
	}
	if n := utf8.RuneCountInString(text); n > MaxInputLength {
		return apperr.Validationf("%s exceeds the maximum length of %d characters (got %d)", field, MaxInputLength, n)
	}
	return nil
}

var normalizationRules = []string{
	"Convert temperatures given in Celsius to Fahrenheit (F = C x 9/5 + 32). Report temperature as a bare number in Fahrenheit.",
	"Convert weights given in pounds to kilograms (kg = lbs / 2.20462). Report weight as a bare number in whole kilograms.",
	"Convert heights to meters: feet and inches via (feet x 12 + inches) x 0.0254, centimeters via cm / 100. Round to 2 decimals.",
	"Compute BMI = weight_kg / height_m^2 rounded to 1 decimal, only when both weight and height are present and BMI is not stated.",
	"Always report blood pressure as a \"systolic/diastolic\" string in mmHg, for example \"120/80\".",
	"Map every anatomical mention to exactly one of these body parts: " + strings.Join(bodyPartLabels(), ", ") + ". When laterality is missing or ambiguous use the general area (a lung is CHEST, a kidney is ABDOMEN) or OTHER.",
	"Write dates as YYYY-MM-DD. Infer a year only when the note makes it unambiguous, otherwise leave the date out.",
	"Leave out any field the note does not mention. Never invent values.",
	"Set confidence to a number between 0 and 1 describing how sure you are of the extraction as a whole.",
}

func bodyPartLabels() []string {
	labels := make([]string, 0, len(clinical.BodyParts))
	for _, bp := range clinical.BodyParts {
		labels = append(labels, bp.Label)
	}
	return labels
}

const extractionShape = `{
  "demographics": {"firstName": "", "lastName": "", "dateOfBirth": "YYYY-MM-DD", "gender": "", "phone": "", "email": "", "address": "", "mrn": ""},
  "vitals": {"bloodPressure": "120/80", "heartRate": 0, "respiratoryRate": 0, "oxygenSaturation": 0, "temperature": 0, "weight": 0, "height": 0, "bmi": 0},
  "medications": [{"name": "", "dosage": "", "frequency": "", "route": "", "startDate": "YYYY-MM-DD"}],
  "socialHistory": {"smoking": "", "alcohol": "", "drugUse": "", "occupation": "", "exercise": ""},
  "pastConditions": [{"condition": "", "diagnosedDate": "YYYY-MM-DD", "status": "", "notes": ""}],
  "immunizations": [{"vaccine": "", "date": "YYYY-MM-DD"}],
  "familyHistory": [{"relation": "", "condition": ""}],
  "allergies": "",
  "generalNotes": "",
  "dnr": false,
  "preventiveCare": "",
  "assessment": [{"bodyPart": "HEAD", "note": ""}],
  "confidence": 0.0
}`

// BuildExtractionPrompt returns the instruction that turns a free-text
// clinical note into a MedicalExtractionResult.
func BuildExtractionPrompt(notes string) (string, error) {
	if err := checkInput("notes", notes); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("You are a clinical documentation assistant. Extract structured EMR fields from the clinical note below.\n\n")
	b.WriteString("Rules:\n")
	for i, rule := range normalizationRules {
		fmt.Fprintf(&b, "%d. %s\n", i+1, rule)
	}
	b.WriteString("\nRespond with a single JSON object of this shape and nothing else:\n")
	b.WriteString(extractionShape)
	b.WriteString("\n\nClinical note:\n\"\"\"\n")
	b.WriteString(notes)
	b.WriteString("\n\"\"\"\n")
	return b.String(), nil
}

// BuildCategorizationPrompt returns the instruction that groups clinical
// text into categories with a short summary.
func BuildCategorizationPrompt(text string) (string, error) {
	if err := checkInput("text", text); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("You are a clinical documentation assistant. Categorize the clinical text below.\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("1. Group findings into categories such as Symptoms, Diagnoses, Medications, Procedures, Vitals, Allergies, Social History or Follow-up.\n")
	b.WriteString("2. Each category lists the verbatim or lightly normalized items that belong to it.\n")
	b.WriteString("3. Give each category a confidence between 0 and 1.\n")
	b.WriteString("4. Summarize the text in at most three sentences and list the key findings.\n")
	b.WriteString("\nRespond with a single JSON object of this shape and nothing else:\n")
	b.WriteString(`{"categories": [{"name": "", "items": [""], "confidence": 0.0}], "summary": "", "keyFindings": [""]}`)
	b.WriteString("\n\nClinical text:\n\"\"\"\n")
	b.WriteString(text)
	b.WriteString("\n\"\"\"\n")
	return b.String(), nil
}

// BuildSearchPrompt returns the instruction that answers query using only
// the given patient record, serialized as JSON.
func BuildSearchPrompt(query, record string) (string, error) {
	if err := checkInput("query", query); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("You are a clinical search assistant. Answer the question using only the patient record below.\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("1. If the record does not contain the answer, say so plainly.\n")
	b.WriteString("2. Cite the record fields you used, for example \"vitals.bloodPressure\" or \"medications[0]\".\n")
	b.WriteString("3. Set confidence to a number between 0 and 1.\n")
	b.WriteString("\nRespond with a single JSON object of this shape and nothing else:\n")
	b.WriteString(`{"answer": "", "citations": [""], "confidence": 0.0}`)
	b.WriteString("\n\nPatient record:\n")
	b.WriteString(record)
	b.WriteString("\n\nQuestion:\n")
	b.WriteString(query)
	b.WriteString("\n")
	return b.String(), nil
}

// BuildIDCardPrompt returns the instruction sent alongside an ID card image.
func BuildIDCardPrompt() string {
	return "You read identity cards. Extract the holder's details from the attached image.\n\n" +
		"Rules:\n" +
		"1. Write dates as YYYY-MM-DD.\n" +
		"2. Leave out any field that is not legible. Never guess.\n" +
		"3. Set confidence to a number between 0 and 1.\n\n" +
		"Respond with a single JSON object of this shape and nothing else:\n" +
		`{"firstName": "", "lastName": "", "dateOfBirth": "YYYY-MM-DD", "gender": "", "idNumber": "", "address": "", "expiryDate": "YYYY-MM-DD", "confidence": 0.0}` +
		"\n"
}
