package opcua

import (
	"testing"

	"github.com/gopcua/opcua/ua"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecurityPoliciesRequiresAtLeastOne(t *testing.T) {
	_, err := securityPolicies(nil)
	assert.Error(t, err)
}

func TestSecurityPoliciesRejectsUnknownName(t *testing.T) {
	_, err := securityPolicies([]string{"Nonsense"})
	assert.Error(t, err)
}

func TestSecurityPoliciesAcceptsNone(t *testing.T) {
	out, err := securityPolicies([]string{"None"})
	require.NoError(t, err)
	require.Len(t, out, 1)
}

func TestRequiresCertificateFalseForNoneOnly(t *testing.T) {
	assert.False(t, requiresCertificate([]string{"None"}))
}

func TestRequiresCertificateTrueForSignedPolicy(t *testing.T) {
	assert.True(t, requiresCertificate([]string{"None", "Basic256Sha256 Sign"}))
}

func TestParentPathForNestedSegments(t *testing.T) {
	assert.Equal(t, "Channel1.Device1", parentPath([]string{"Channel1", "Device1", "Tag1"}))
}

func TestParentPathForTopLevelSegment(t *testing.T) {
	assert.Equal(t, "", parentPath([]string{"Channel1"}))
}

func TestZeroValueForScalarAndArray(t *testing.T) {
	assert.Equal(t, false, zeroValueFor("bool", 0))
	arr, ok := zeroValueFor("int16", 3).([]interface{})
	require.True(t, ok)
	assert.Len(t, arr, 3)
}

func TestSplitArrayIndexDetectsSuffix(t *testing.T) {
	base, idx, ok := splitArrayIndex("Channel1.Device1.Tag1 [2]")
	require.True(t, ok)
	assert.Equal(t, "Channel1.Device1.Tag1", base)
	assert.Equal(t, 2, idx)
}

func TestSplitArrayIndexNoSuffix(t *testing.T) {
	_, _, ok := splitArrayIndex("Channel1.Device1.Tag1")
	assert.False(t, ok)
}

func TestSplitTreePathExtractsComponents(t *testing.T) {
	channel, device, tag, ok := splitTreePath("Channel1.Device1.Group1.Tag1")
	require.True(t, ok)
	assert.Equal(t, "Channel1", channel)
	assert.Equal(t, "Device1", device)
	assert.Equal(t, "Tag1", tag)
}

func TestSplitTreePathRejectsShortPath(t *testing.T) {
	_, _, _, ok := splitTreePath("Channel1")
	assert.False(t, ok)
}

func TestOnClientWriteRoutesWholeArrayWithNoIndex(t *testing.T) {
	var gotChannel, gotDevice, gotTag string
	var gotValue interface{}
	gotIndex := -99
	b := &Bridge{
		ns:       2,
		nodes:    make(map[string]*nodeEntry),
		updating: make(map[string]struct{}),
		router: func(channel, device, tag string, value interface{}, elementIndex int) bool {
			gotChannel, gotDevice, gotTag, gotValue, gotIndex = channel, device, tag, value, elementIndex
			return true
		},
	}
	id := ua.NewStringNodeID(2, "Channel1.Device1.Samples")
	variant, err := ua.NewVariant([]int32{1, 2, 3})
	require.NoError(t, err)

	ok := b.onClientWrite(id, variant)
	require.True(t, ok)
	assert.Equal(t, "Channel1", gotChannel)
	assert.Equal(t, "Device1", gotDevice)
	assert.Equal(t, "Samples", gotTag)
	assert.Equal(t, -1, gotIndex)
	assert.Equal(t, variant.Value(), gotValue)
}

func TestOnClientWriteRoutesSingleElementByIndexSuffix(t *testing.T) {
	var gotTag string
	var gotValue interface{}
	gotIndex := -99
	b := &Bridge{
		ns:       2,
		nodes:    make(map[string]*nodeEntry),
		updating: make(map[string]struct{}),
		router: func(channel, device, tag string, value interface{}, elementIndex int) bool {
			gotTag, gotValue, gotIndex = tag, value, elementIndex
			return true
		},
	}
	id := ua.NewStringNodeID(2, "Channel1.Device1.Samples [1]")
	variant, err := ua.NewVariant(int32(42))
	require.NoError(t, err)

	ok := b.onClientWrite(id, variant)
	require.True(t, ok)
	assert.Equal(t, "Samples", gotTag)
	assert.Equal(t, 1, gotIndex)
	assert.Equal(t, variant.Value(), gotValue)
}

func TestOnClientWriteSuppressesPushOriginatedUpdates(t *testing.T) {
	b := &Bridge{
		ns:       2,
		nodes:    make(map[string]*nodeEntry),
		updating: map[string]struct{}{"Channel1.Device1.Tag1": {}},
		router: func(channel, device, tag string, value interface{}, elementIndex int) bool {
			t.Fatal("router should not be called for a suppressed path")
			return false
		},
	}
	id := ua.NewStringNodeID(2, "Channel1.Device1.Tag1")
	variant, err := ua.NewVariant(1.0)
	require.NoError(t, err)

	ok := b.onClientWrite(id, variant)
	assert.False(t, ok)
}
