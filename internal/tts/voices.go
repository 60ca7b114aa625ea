package tts

// Voice is a premade narration voice.
type Voice struct {
	ID          string `json:"voice_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	PreviewURL  string `json:"preview_url"`
}

// PremadeVoices is the built-in narration catalog. Serving it locally
// avoids an upstream round trip for the common case.
var PremadeVoices = []Voice{
	{
		ID:          "onwK4e9ZLuTAKqWW03F9",
		Name:        "Daniel",
		Description: "British male, deep, documentary style",
		Category:    "male",
		PreviewURL:  "https://storage.googleapis.com/eleven-public-prod/premade/voices/onwK4e9ZLuTAKqWW03F9/7eee0236-1a72-4b86-b303-5dcadc007ba9.mp3",
	},
	{
		ID:          "pNInz6obpgDQGcFmaJgB",
		Name:        "Adam",
		Description: "American male, deep, authoritative",
		Category:    "male",
		PreviewURL:  "https://storage.googleapis.com/eleven-public-prod/premade/voices/pNInz6obpgDQGcFmaJgB/d6905d7a-dd26-4187-bfff-1bd3a5ea7cac.mp3",
	},
	{
		ID:          "nPczCjzI2devNBz1zQrb",
		Name:        "Brian",
		Description: "American male, deep, narration",
		Category:    "male",
		PreviewURL:  "https://storage.googleapis.com/eleven-public-prod/premade/voices/nPczCjzI2devNBz1zQrb/2dd3e72c-4fd3-42f1-93ea-abc5d4e5aa1d.mp3",
	},
	{
		ID:          "JBFqnCBsd6RMkjVDRZzb",
		Name:        "George",
		Description: "British male, warm, raspy",
		Category:    "male",
		PreviewURL:  "https://storage.googleapis.com/eleven-public-prod/premade/voices/JBFqnCBsd6RMkjVDRZzb/e6206d1a-0721-4787-aafb-06a6e705cac5.mp3",
	},
	{
		ID:          "pqHfZKP75CvOlQylNhV4",
		Name:        "Bill",
		Description: "American male, trustworthy, documentary",
		Category:    "male",
		PreviewURL:  "https://storage.googleapis.com/eleven-public-prod/premade/voices/pqHfZKP75CvOlQylNhV4/d782b3ff-84ba-4029-848c-acf01285524d.mp3",
	},
	{
		ID:          "EXAVITQu4vr4xnSDxMaL",
		Name:        "Sarah",
		Description: "American female, soft, news",
		Category:    "female",
		PreviewURL:  "https://storage.googleapis.com/eleven-public-prod/premade/voices/EXAVITQu4vr4xnSDxMaL/01a3e33c-6e99-4ee7-8543-ff2216a32186.mp3",
	},
	{
		ID:          "Xb7hH8MSUJpSbSDYk0k2",
		Name:        "Alice",
		Description: "British female, confident, middle-aged",
		Category:    "female",
		PreviewURL:  "https://storage.googleapis.com/eleven-public-prod/premade/voices/Xb7hH8MSUJpSbSDYk0k2/d10f7534-11f6-41fe-a012-2de1e482d336.mp3",
	},
	{
		ID:          "pFZP5JQG7iQjIQuC4Bku",
		Name:        "Lily",
		Description: "British female, warm, raspy",
		Category:    "female",
		PreviewURL:  "https://storage.googleapis.com/eleven-public-prod/premade/voices/pFZP5JQG7iQjIQuC4Bku/89b68b35-b3dd-4348-a84a-a3c13a3c2b30.mp3",
	},
}

// VoiceByID looks up a premade voice.
func VoiceByID(id string) (Voice, bool) {
	for _, v := range PremadeVoices {
		if v.ID == id {
			return v, true
		}
	}
	return Voice{}, false
}
