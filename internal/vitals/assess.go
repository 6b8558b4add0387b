package vitals

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/meditrack/coordination/pkg/types"
)

// Assess checks one reading against the risk thresholds. It returns the
// risk description and true when the reading needs an alert. Values that
// do not parse never alert.
func Assess(vitalType types.VitalType, value string) (string, bool) {
	value = strings.TrimSpace(value)

	switch vitalType {
	case types.VitalBloodPressure:
		parts := strings.SplitN(value, "/", 2)
		if len(parts) != 2 {
			return "", false
		}
		sys, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		dia, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err1 != nil || err2 != nil {
			return "", false
		}
		if sys >= 140 || dia >= 90 {
			return fmt.Sprintf("High Blood Pressure detected (%s). Please consult your doctor.", value), true
		}
		if sys <= 90 || dia <= 60 {
			return fmt.Sprintf("Low Blood Pressure detected (%s). Monitor closely.", value), true
		}

	case types.VitalHeartRate:
		hr, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return "", false
		}
		if hr > 100 {
			return fmt.Sprintf("High Heart Rate detected (%s bpm).", value), true
		}
		if hr < 50 {
			return fmt.Sprintf("Low Heart Rate detected (%s bpm).", value), true
		}

	case types.VitalBloodSugar:
		sugar, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return "", false
		}
		if sugar > 180 {
			return fmt.Sprintf("High Blood Sugar detected (%s mg/dL).", value), true
		}
		if sugar < 70 {
			return fmt.Sprintf("Low Blood Sugar detected (%s mg/dL).", value), true
		}

	case types.VitalTemperature:
		temp, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return "", false
		}
		if temp > 38 {
			return fmt.Sprintf("Fever detected (%s °C).", value), true
		}
	}

	return "", false
}

// AlertMessage is the notification text for a risk description
func AlertMessage(risk string) string {
	return "⚠️ Health Alert: " + risk
}
