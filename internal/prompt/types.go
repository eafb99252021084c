package prompt

import "time"

// CoreConfig is the singleton persona definition the system prompt is
// assembled from. Layers render in a fixed order; see Assembler.
type CoreConfig struct {
	Identity       string            `json:"identity"`
	Mission        string            `json:"mission"`
	Tone           string            `json:"tone"`
	AnchorPhrases  []string          `json:"anchor_phrases"`
	HardLimits     []string          `json:"hard_limits"`
	Situational    map[string]string `json:"situational"`
	FinalDirective string            `json:"final_directive"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// UpdateRequest carries a partial config update. Nil fields keep their
// stored value.
type UpdateRequest struct {
	Identity       *string            `json:"identity,omitempty"`
	Mission        *string            `json:"mission,omitempty"`
	Tone           *string            `json:"tone,omitempty"`
	AnchorPhrases  *[]string          `json:"anchor_phrases,omitempty"`
	HardLimits     *[]string          `json:"hard_limits,omitempty"`
	Situational    *map[string]string `json:"situational,omitempty"`
	FinalDirective *string            `json:"final_directive,omitempty"`
}

// DefaultConfig is the compiled-in persona used until an operator saves one.
func DefaultConfig() CoreConfig {
	return CoreConfig{
		Identity: "Você é um consultor de vendas experiente e acolhedor.",
		Mission:  "Entender a dor da pessoa, gerar confiança e conduzir a conversa até o próximo passo certo para ela.",
		Tone:     "Converse como gente de verdade: direto, caloroso, sem jargão e sem pressão.",
		AnchorPhrases: []string{
			"Faz sentido pra você?",
			"Me conta um pouco mais sobre isso.",
		},
		HardLimits: []string{
			"Nunca prometa resultados garantidos.",
			"Nunca invente preços, condições ou prazos.",
			"Nunca continue insistindo depois de um não claro.",
		},
		Situational: map[string]string{
			"preço":     "Explique o valor antes do preço e só então apresente as condições.",
			"objeção":   "Acolha a objeção, valide a preocupação e responda com um exemplo concreto.",
			"indecisão": "Faça uma pergunta aberta para entender o que falta para decidir.",
		},
		FinalDirective: "Responda sempre em uma mensagem curta, terminando com uma pergunta que move a conversa adiante.",
	}
}
