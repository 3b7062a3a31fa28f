package registry

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/lipsync/internal/scene"
)

func targetMesh(name string, named bool, targetNames ...string) *scene.Mesh {
	positions := []mgl32.Vec3{{0, 0, 0}}
	targets := make([]scene.MorphTarget, len(targetNames))
	for i, tn := range targetNames {
		targets[i] = scene.MorphTarget{
			Name:           tn,
			PositionDeltas: []mgl32.Vec3{{0, 0, 1}},
		}
	}
	return scene.NewMesh(name, positions, nil, targets, named)
}

func meshRef(i int) *int { return &i }

func TestExtractHiddenNodeNamePass(t *testing.T) {
	// Unnamed dictionary keeps the fuzzy scan out of the picture; the
	// node name alone justifies classification.
	tongue := targetMesh("TongueMesh", false, "Tongue_Out", "V_Tongue_up", "Wobble")
	model := &scene.Model{
		Name:   "rig",
		Meshes: []*scene.Mesh{tongue},
		Nodes:  []scene.Node{{Name: "Tongue01", Mesh: meshRef(0)}},
		Roots:  []int{0},
	}

	ext := ExtractHidden(model, zerolog.Nop())

	require.True(t, ext.Recovered())
	assert.Equal(t, []Method{MethodNodeName}, ext.Methods)

	require.Contains(t, ext.Channels, "Tongue_Out")
	assert.Equal(t, []Handle{{Mesh: tongue, Index: 0}}, ext.Channels["Tongue_Out"])

	// Classified targets stay reachable under both canonical and raw names
	require.Contains(t, ext.Channels, "Tongue_Up")
	require.Contains(t, ext.Channels, "V_Tongue_up")
	assert.Equal(t, ext.Channels["Tongue_Up"], ext.Channels["V_Tongue_up"])

	require.Contains(t, ext.Channels, "Wobble")
	require.Len(t, ext.Candidates, 1)
	assert.Equal(t, Candidate{
		MeshName:    "TongueMesh",
		TargetIndex: 2,
		TargetName:  "Wobble",
		Method:      MethodNodeName,
	}, ext.Candidates[0])
}

func TestExtractHiddenDictionaryPass(t *testing.T) {
	head := targetMesh("Head", true, "Jaw_Open", "Tongue_Tip_Up", "TongueRoll")
	model := &scene.Model{
		Name:   "rig",
		Meshes: []*scene.Mesh{head},
		Nodes:  []scene.Node{{Name: "Head", Mesh: meshRef(0)}},
		Roots:  []int{0},
	}

	ext := ExtractHidden(model, zerolog.Nop())

	require.True(t, ext.Recovered())
	assert.Equal(t, []Method{MethodDictionary}, ext.Methods)
	assert.NotContains(t, ext.Channels, "Jaw_Open")

	require.Contains(t, ext.Channels, "Tongue_Tip_Up")
	require.Contains(t, ext.Channels, "Tongue_Roll")
	require.Contains(t, ext.Channels, "TongueRoll")
	assert.Equal(t, []Handle{{Mesh: head, Index: 2}}, ext.Channels["Tongue_Roll"])
	assert.Empty(t, ext.Candidates)
}

func TestExtractHiddenBoneSkinPass(t *testing.T) {
	body := targetMesh("Body", false, "target_0", "target_1")
	model := &scene.Model{
		Name:   "rig",
		Meshes: []*scene.Mesh{body},
		Nodes: []scene.Node{
			{Name: "CC_Base_Tongue01"},
			{Name: "Body", Mesh: meshRef(0), Skin: meshRef(0)},
		},
		Skins: []scene.Skin{{Name: "rig", Joints: []int{0}}},
		Roots: []int{0, 1},
	}

	ext := ExtractHidden(model, zerolog.Nop())

	require.True(t, ext.Recovered())
	assert.Equal(t, []Method{MethodBoneSkin}, ext.Methods)
	require.Contains(t, ext.Channels, "target_0")
	require.Contains(t, ext.Channels, "target_1")
	require.Len(t, ext.Candidates, 2)
	assert.Equal(t, MethodBoneSkin, ext.Candidates[0].Method)
}

func TestExtractHiddenBoneSkinSkippedWhenEarlierPassesHit(t *testing.T) {
	head := targetMesh("Head", true, "Tongue_Out")
	body := targetMesh("Body", false, "target_0")
	model := &scene.Model{
		Name:   "rig",
		Meshes: []*scene.Mesh{head, body},
		Nodes: []scene.Node{
			{Name: "CC_Base_Tongue01"},
			{Name: "Head", Mesh: meshRef(0)},
			{Name: "Body", Mesh: meshRef(1), Skin: meshRef(0)},
		},
		Skins: []scene.Skin{{Name: "rig", Joints: []int{0}}},
		Roots: []int{0, 1, 2},
	}

	ext := ExtractHidden(model, zerolog.Nop())

	assert.Equal(t, []Method{MethodDictionary}, ext.Methods)
	assert.Contains(t, ext.Channels, "Tongue_Out")
	assert.NotContains(t, ext.Channels, "target_0")
}

func TestExtractHiddenNothingToFind(t *testing.T) {
	head := targetMesh("Head", true, "Jaw_Open", "Mouth_Pucker")
	model := &scene.Model{
		Name:   "rig",
		Meshes: []*scene.Mesh{head},
		Nodes:  []scene.Node{{Name: "Head", Mesh: meshRef(0)}},
		Roots:  []int{0},
	}

	ext := ExtractHidden(model, zerolog.Nop())

	assert.False(t, ext.Recovered())
	assert.Empty(t, ext.Channels)
	assert.Empty(t, ext.Methods)
	assert.Empty(t, ext.Candidates)
}

func TestExtractionFeedsRegistry(t *testing.T) {
	head := targetMesh("Head", true, "Jaw_Open")
	tongue := targetMesh("TongueMesh", false, "out_morph")
	model := &scene.Model{
		Name:   "rig",
		Meshes: []*scene.Mesh{head, tongue},
		Nodes: []scene.Node{
			{Name: "Head", Mesh: meshRef(0)},
			{Name: "Tongue01", Mesh: meshRef(1)},
		},
		Roots: []int{0, 1},
	}

	ext := ExtractHidden(model, zerolog.Nop())
	require.True(t, ext.Recovered())

	reg := New(zerolog.Nop())
	report := reg.Attach(model, DictionaryProber{}, ext)

	assert.Equal(t, 2, report.MorphMeshes)
	assert.True(t, reg.Has("Jaw_Open"))
	assert.True(t, reg.Has("Tongue_Out"))
	assert.True(t, reg.Has("out_morph"))

	ch, ok := reg.Channel("Tongue_Out")
	require.True(t, ok)
	ch.Set(0.4)
	assert.Equal(t, float32(0.4), tongue.Weight(0))
}

func TestClassifyTongueTarget(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"Tongue_Out", "Tongue_Out"},
		{"V_Tongue_Out", "Tongue_Out"},
		{"TongueTipUp", "Tongue_Tip_Up"},
		{"Tongue_Roll", "Tongue_Roll"},
		{"tongue_curl", "Tongue_Roll"},
		{"Tongue_Up", "Tongue_Up"},
		{"TongueRaise", "Tongue_Up"},
		{"Tongue_Narrow", "Tongue_Narrow"},
		{"Tongue_Wide", "Tongue_Wide"},
		{"Blink", ""},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, classifyTongueTarget(tc.name), "name %q", tc.name)
	}
}

func TestIsTongueName(t *testing.T) {
	assert.True(t, isTongueName("Tongue01"))
	assert.True(t, isTongueName("CC_Base_Tongue"))
	assert.True(t, isTongueName("tongueOut"))
	assert.False(t, isTongueName("Jaw"))
	assert.False(t, isTongueName(""))
}
