package analytics

import "time"

// Report labels follow the operational dashboard convention: age bands keep
// their reporting ranges in the label, seasons and weekdays use names rather
// than codes.

func ageGroupOf(age int) string {
	switch {
	case age <= 0:
		return "Unknown"
	case age >= 18 && age <= 35:
		return "Young Adult (18-35)"
	case age >= 36 && age <= 50:
		return "Middle Age (36-50)"
	case age >= 51 && age <= 65:
		return "Older Adult (51-65)"
	case age >= 66 && age <= 80:
		return "Elderly (66-80)"
	case age > 80 && age <= 120:
		return "Very Elderly (80+)"
	default:
		return "Other"
	}
}

const (
	localityRural = "Rural"
	localityUrban = "Urban"
)

func localityOf(rural bool) string {
	if rural {
		return localityRural
	}
	return localityUrban
}

func seasonName(m time.Month) string {
	switch m {
	case time.December, time.January, time.February:
		return "Winter"
	case time.March, time.April, time.May:
		return "Spring"
	case time.June, time.July, time.August:
		return "Summer"
	default:
		return "Fall"
	}
}
