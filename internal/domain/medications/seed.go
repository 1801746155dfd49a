package medications

// SampleSeed es el set fijo de ejemplo que ambos backends siembran
// cuando la colección está vacía. Valores deterministas: misma data
// en cada instalación limpia, sea sqlite o flat store.
var SampleSeed = []NewMedication{
	{
		Name:         "Aspirin",
		Dosage:       "100mg",
		Frequency:    "Once daily",
		Time:         "08:00",
		Instructions: "Take with food",
		StartDate:    "2025-01-01",
	},
	{
		Name:         "Metformin",
		Dosage:       "500mg",
		Frequency:    "Twice daily",
		Time:         "12:30",
		Instructions: "Take with meals",
		StartDate:    "2025-01-01",
	},
	{
		Name:      "Atorvastatin",
		Dosage:    "20mg",
		Frequency: "Once daily",
		Time:      "20:00",
		StartDate: "2025-01-01",
	},
}
