package lexicon

// Default returns the built-in symptom lexicon. The tables mirror the ones
// the chat pipeline has shipped with from the start: a handful of common
// complaints, each with its phrase variants and 1-3 candidate specialties.
func Default() *Lexicon {
	return New(
		WithSymptom("headache",
			[]string{"headache", "head ache", "migraine", "head pain"},
			[]string{"Neurology", "General Medicine"}),
		WithSymptom("fever",
			[]string{"fever", "temperature", "high temperature", "feverish"},
			[]string{"General Medicine", "Internal Medicine"}),
		WithSymptom("cough",
			[]string{"cough", "coughing", "dry cough"},
			[]string{"Pulmonology", "General Medicine"}),
		WithSymptom("cold",
			[]string{"cold", "runny nose", "sneezing", "blocked nose"},
			[]string{"General Medicine", "ENT"}),
		WithSymptom("sore throat",
			[]string{"sore throat", "throat pain", "throat ache"},
			[]string{"ENT", "General Medicine"}),
		WithSymptom("chest pain",
			[]string{"chest pain", "chest ache", "chest discomfort", "palpitations"},
			[]string{"Cardiology", "General Medicine"}),
		WithSymptom("stomach ache",
			[]string{"stomach ache", "stomachache", "stomach pain", "abdominal pain", "belly ache"},
			[]string{"Gastroenterology", "General Medicine"}),
		WithSymptom("skin rash",
			[]string{"skin rash", "rash", "itching", "itchy skin", "acne", "pimples"},
			[]string{"Dermatology"}),
		WithSymptom("joint pain",
			[]string{"joint pain", "knee pain", "shoulder pain", "arthritis"},
			[]string{"Orthopedics", "Rheumatology"}),
		WithSymptom("back pain",
			[]string{"back pain", "backache", "back ache", "lower back"},
			[]string{"Orthopedics", "Physiotherapy"}),
		WithSymptom("tooth pain",
			[]string{"tooth pain", "toothache", "tooth ache", "gum pain"},
			[]string{"Dentistry"}),
		WithSymptom("eye problem",
			[]string{"eye pain", "blurry vision", "blurred vision", "red eye", "eye irritation"},
			[]string{"Ophthalmology"}),
		WithSymptom("ear pain",
			[]string{"ear pain", "earache", "ear ache", "hearing problem"},
			[]string{"ENT"}),
		WithSymptom("breathing difficulty",
			[]string{"breathing difficulty", "shortness of breath", "breathless", "wheezing", "asthma"},
			[]string{"Pulmonology", "Cardiology"}),
		WithSymptom("anxiety",
			[]string{"anxiety", "anxious", "panic attack", "stress", "depression", "depressed"},
			[]string{"Psychiatry", "Psychology"}),
		WithSymptom("dizziness",
			[]string{"dizziness", "dizzy", "vertigo", "lightheaded"},
			[]string{"Neurology", "General Medicine"}),
		WithSymptom("diabetes",
			[]string{"diabetes", "blood sugar", "sugar level"},
			[]string{"Endocrinology", "General Medicine"}),
		WithSymptom("blood pressure",
			[]string{"blood pressure", "hypertension", "bp problem"},
			[]string{"Cardiology", "General Medicine"}),
		WithSymptom("urinary problem",
			[]string{"urine", "urinary", "burning urination", "kidney pain"},
			[]string{"Urology", "Nephrology"}),
		WithSymptom("pregnancy",
			[]string{"pregnancy", "pregnant", "period pain", "irregular periods"},
			[]string{"Gynecology"}),
	)
}
