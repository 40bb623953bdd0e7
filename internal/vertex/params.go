package vertex

import "google.golang.org/genai"

// Params are the generation settings for one request.
// Nil pointers leave the model default in place.
type Params struct {
	Temperature      *float32
	TopP             *float32
	TopK             *float32
	MaxOutputTokens  int32
	ResponseMIMEType string
	Safety           []*genai.SafetySetting
	Tools            []*genai.Tool
	// SystemInstruction is sent as a system turn when set.
	SystemInstruction string
}

func (p Params) config() *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature:        p.Temperature,
		TopP:               p.TopP,
		TopK:               p.TopK,
		MaxOutputTokens:    p.MaxOutputTokens,
		ResponseMIMEType:   p.ResponseMIMEType,
		ResponseModalities: []string{"TEXT"},
		SafetySettings:     p.Safety,
		Tools:              p.Tools,
	}
	if p.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(p.SystemInstruction, genai.RoleUser)
	}
	return cfg
}

// Float returns a pointer to v, for the optional sampling fields.
func Float(v float32) *float32 {
	return &v
}

var harmCategories = []genai.HarmCategory{
	genai.HarmCategoryHateSpeech,
	genai.HarmCategoryDangerousContent,
	genai.HarmCategorySexuallyExplicit,
	genai.HarmCategoryHarassment,
}

func uniformSafety(threshold genai.HarmBlockThreshold) []*genai.SafetySetting {
	settings := make([]*genai.SafetySetting, 0, len(harmCategories))
	for _, c := range harmCategories {
		settings = append(settings, &genai.SafetySetting{Category: c, Threshold: threshold})
	}
	return settings
}

// SafetyBlockNone disables blocking but keeps safety scoring in responses.
func SafetyBlockNone() []*genai.SafetySetting {
	return uniformSafety(genai.HarmBlockThresholdBlockNone)
}

// SafetyOff turns the safety filter off for every category.
func SafetyOff() []*genai.SafetySetting {
	return uniformSafety(genai.HarmBlockThresholdOff)
}

// SafetyAgent is the mixed profile used by the exchange rate agent.
func SafetyAgent() []*genai.SafetySetting {
	return []*genai.SafetySetting{
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockLowAndAbove},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
	}
}
