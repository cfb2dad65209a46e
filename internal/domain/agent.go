package domain

import "time"

// DefaultAgentType is the agent type assigned when none is given.
const DefaultAgentType = "TinyPerson"

// BigFivePersonality describes an agent on the Big Five scales.
type BigFivePersonality struct {
	Openness          string `json:"openness"`
	Conscientiousness string `json:"conscientiousness"`
	Extraversion      string `json:"extraversion"`
	Agreeableness     string `json:"agreeableness"`
	Neuroticism       string `json:"neuroticism"`
}

// PersonalityTraits lists free form traits plus an optional Big Five profile.
type PersonalityTraits struct {
	Traits  []string            `json:"traits"`
	BigFive *BigFivePersonality `json:"big_five,omitempty"`
}

// Occupation details.
type Occupation struct {
	Title        string `json:"title"`
	Organization string `json:"organization,omitempty"`
	Description  string `json:"description"`
}

// Preferences of an agent.
type Preferences struct {
	Interests []string `json:"interests,omitempty"`
	Likes     []string `json:"likes,omitempty"`
	Dislikes  []string `json:"dislikes,omitempty"`
}

// Behaviors of an agent.
type Behaviors struct {
	General  []string            `json:"general,omitempty"`
	Routines map[string][]string `json:"routines,omitempty"`
}

// Relationship to another person.
type Relationship struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Persona is the full character description of an agent.
type Persona struct {
	Name          string             `json:"name"`
	Age           *int               `json:"age,omitempty"`
	Gender        string             `json:"gender,omitempty"`
	Nationality   string             `json:"nationality,omitempty"`
	Residence     string             `json:"residence,omitempty"`
	Education     string             `json:"education,omitempty"`
	LongTermGoals []string           `json:"long_term_goals,omitempty"`
	Occupation    *Occupation        `json:"occupation,omitempty"`
	Style         string             `json:"style,omitempty"`
	Personality   *PersonalityTraits `json:"personality,omitempty"`
	Preferences   *Preferences       `json:"preferences,omitempty"`
	Skills        []string           `json:"skills,omitempty"`
	Beliefs       []string           `json:"beliefs,omitempty"`
	Behaviors     *Behaviors         `json:"behaviors,omitempty"`
	Health        string             `json:"health,omitempty"`
	Relationships []Relationship     `json:"relationships,omitempty"`
	OtherFacts    []string           `json:"other_facts,omitempty"`
}

// Agent is a persona bearing participant that simulations reference by ID.
type Agent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Persona   Persona   `json:"persona"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateAgentRequest carries the fields of a new agent.
type CreateAgentRequest struct {
	Type    string  `json:"type,omitempty"`
	Persona Persona `json:"persona"`
}

// UpdateAgentRequest replaces the persona of an existing agent.
type UpdateAgentRequest struct {
	Persona *Persona `json:"persona,omitempty"`
}
