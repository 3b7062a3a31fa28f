package viseme

import "strings"

// WeightedMorph pairs a morph target name with its relative weight within a
// viseme shape, before calibration and intensity scaling.
type WeightedMorph struct {
	Name   string
	Weight float32
}

// Category groups visemes by articulation for calibrated intensity scaling
type Category string

const (
	CategoryNone       Category = ""
	CategoryJawFull    Category = "jaw_full"
	CategoryJawMedium  Category = "jaw_medium"
	CategoryJawSlight  Category = "jaw_slight"
	CategoryJawMinimal Category = "jaw_minimal"
	CategoryLipPress   Category = "lip_press"
	CategoryLipSeal    Category = "lip_seal"
	CategoryFunnel     Category = "funnel"
	CategoryPucker     Category = "pucker"
	CategoryTongue     Category = "tongue"
)

// Definition is a viseme's primary shape: the morph combination plus the
// calibration category it scales under.
type Definition struct {
	ID       ID
	Category Category
	Morphs   []WeightedMorph
}

// combinations is the primary mapping table. Morph names follow the CC/ARKit
// split-channel convention; missing names on a given rig degrade through the
// legacy and synonym stages below.
var combinations = map[ID]Definition{
	Sil: {ID: Sil, Category: CategoryNone, Morphs: nil},
	PP:  {ID: PP, Category: CategoryLipPress, Morphs: []WeightedMorph{{"Mouth_Press_L", 0.7}, {"Mouth_Press_R", 0.7}, {"Mouth_Close", 0.4}}},
	FF:  {ID: FF, Category: CategoryLipSeal, Morphs: []WeightedMorph{{"Mouth_Roll_In_Lower", 0.8}, {"Jaw_Open", 0.15}}},
	TH:  {ID: TH, Category: CategoryTongue, Morphs: []WeightedMorph{{"Tongue_Out", 0.8}, {"Jaw_Open", 0.25}}},
	DD:  {ID: DD, Category: CategoryTongue, Morphs: []WeightedMorph{{"Tongue_Tip_Up", 0.7}, {"Jaw_Open", 0.2}}},
	KK:  {ID: KK, Category: CategoryJawSlight, Morphs: []WeightedMorph{{"Tongue_Up", 0.6}, {"Tongue_Narrow", 0.2}}},
	CH:  {ID: CH, Category: CategoryFunnel, Morphs: []WeightedMorph{{"Mouth_Funnel", 0.6}, {"Tongue_Tip_Up", 0.3}, {"Jaw_Open", 0.2}}},
	SS:  {ID: SS, Category: CategoryJawMinimal, Morphs: []WeightedMorph{{"Mouth_Stretch_L", 0.4}, {"Mouth_Stretch_R", 0.4}, {"Jaw_Open", 0.1}}},
	NN:  {ID: NN, Category: CategoryTongue, Morphs: []WeightedMorph{{"Tongue_Tip_Up", 0.6}, {"Jaw_Open", 0.15}}},
	RR:  {ID: RR, Category: CategoryTongue, Morphs: []WeightedMorph{{"Tongue_Roll", 0.6}, {"Mouth_Funnel", 0.3}, {"Jaw_Open", 0.15}}},
	AA:  {ID: AA, Category: CategoryJawFull, Morphs: []WeightedMorph{{"Jaw_Open", 1.0}}},
	E:   {ID: E, Category: CategoryJawMedium, Morphs: []WeightedMorph{{"Jaw_Open", 0.55}, {"Mouth_Smile_L", 0.25}, {"Mouth_Smile_R", 0.25}}},
	I:   {ID: I, Category: CategoryJawSlight, Morphs: []WeightedMorph{{"Jaw_Open", 0.35}, {"Mouth_Smile_L", 0.2}, {"Mouth_Smile_R", 0.2}}},
	O:   {ID: O, Category: CategoryFunnel, Morphs: []WeightedMorph{{"Jaw_Open", 0.6}, {"Mouth_Funnel", 0.7}}},
	U:   {ID: U, Category: CategoryPucker, Morphs: []WeightedMorph{{"Mouth_Pucker", 0.85}, {"Jaw_Open", 0.2}}},
}

// legacy maps each viseme onto the coarse single-morph vocabulary older rigs
// ship with. Consulted when the combination resolves nothing.
var legacy = map[ID]WeightedMorph{
	PP: {"Mouth_Close", 0.8},
	FF: {"Mouth_Close", 0.6},
	TH: {"Mouth_Open", 0.4},
	DD: {"Mouth_Open", 0.4},
	KK: {"Mouth_Open", 0.35},
	CH: {"Mouth_Open", 0.4},
	SS: {"Mouth_Wide", 0.5},
	NN: {"Mouth_Open", 0.3},
	RR: {"Mouth_Open", 0.35},
	AA: {"Mouth_Open", 0.9},
	E:  {"Mouth_Wide", 0.6},
	I:  {"Mouth_Wide", 0.4},
	O:  {"Mouth_Round", 0.7},
	U:  {"Mouth_Round", 0.85},
}

// synonyms lists alternate vendor names per viseme, tried last and applied
// together. kk deliberately degrades to jaw motion when no velar shape exists.
var synonyms = map[ID][]WeightedMorph{
	PP: {{"V_Explosive", 0.8}, {"Mouth_Close", 0.6}},
	FF: {{"V_Dental_Lip", 0.8}},
	TH: {{"V_Tongue_Out", 0.8}},
	DD: {{"V_Tongue_up", 0.7}},
	KK: {{"Jaw_Open", 0.35}, {"Jaw_Forward", 0.2}},
	CH: {{"V_Affricate", 0.7}},
	SS: {{"V_Tight", 0.6}},
	NN: {{"V_Tongue_Raise", 0.6}},
	RR: {{"V_Tongue_Curl_U", 0.6}},
	AA: {{"V_Open", 0.9}},
	E:  {{"V_Wide", 0.7}},
	I:  {{"V_Wide", 0.5}},
	O:  {{"V_Tight_O", 0.8}},
	U:  {{"V_Tight_O", 0.85}},
}

// tongueProxies substitute visible jaw/lip differentiation when a rig offers
// no drivable tongue morphs at all. Each tongue viseme keeps a distinct
// silhouette so speech stays readable.
var tongueProxies = map[ID][]WeightedMorph{
	TH: {{"Jaw_Open", 0.3}},
	DD: {{"Jaw_Open", 0.25}, {"Mouth_Stretch_L", 0.1}, {"Mouth_Stretch_R", 0.1}},
	NN: {{"Jaw_Open", 0.15}, {"Mouth_Close", 0.2}},
	RR: {{"Jaw_Open", 0.2}, {"Mouth_Funnel", 0.4}},
}

// Lookup returns the primary definition for an id
func Lookup(id ID) (Definition, bool) {
	def, ok := combinations[id]
	return def, ok
}

// IsTongueMorph reports whether a morph name drives tongue articulation
func IsTongueMorph(name string) bool {
	return strings.Contains(strings.ToLower(name), "tongue")
}
