package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrameworkError(t *testing.T) {
	fe, err := ParseFrameworkError(`处理失败：Error Domain=com.apple.coreaudio.avfaudio Code=1685348671 "(null)" UserInfo={failed call=ExtAudioFileOpenURL((CFURLRef)fileURL, &_extAudioFile)}`)
	require.NoError(t, err)

	assert.Equal(t, "com.apple.coreaudio.avfaudio", fe.Domain)
	assert.Equal(t, int64(1685348671), fe.Code)
	assert.Empty(t, fe.Description)
	require.Len(t, fe.UserInfo, 1)
	assert.Equal(t, "failed call", fe.UserInfo[0].Key)

	fourcc, ok := fe.FourCC()
	require.True(t, ok)
	assert.Equal(t, "dta?", fourcc)
}

func TestParseFrameworkError_Nested(t *testing.T) {
	text := `Error Domain=NSCocoaErrorDomain Code=256 "The file couldn\"t be opened." UserInfo={NSFilePath=/tmp/a.m4a, NSUnderlyingError=0x600000c8 {Error Domain=NSOSStatusErrorDomain Code=-54 "(null)"}}`
	fe, err := ParseFrameworkError(text)
	require.NoError(t, err)

	assert.Equal(t, `The file couldn"t be opened.`, fe.Description)
	require.Len(t, fe.UserInfo, 2)
	path, ok := fe.Info("NSFilePath")
	require.True(t, ok)
	assert.Equal(t, "/tmp/a.m4a", path)

	nested, ok := fe.Underlying()
	require.True(t, ok)
	assert.Equal(t, "NSOSStatusErrorDomain", nested.Domain)
	assert.Equal(t, int64(-54), nested.Code)

	_, ok = nested.FourCC()
	assert.False(t, ok)
	_, ok = nested.Underlying()
	assert.False(t, ok)
}

func TestFrameworkError_StringRoundTrip(t *testing.T) {
	fe := &FrameworkError{
		Domain:   "com.apple.coreaudio.avfaudio",
		Code:     2003334207,
		UserInfo: []Field{{Key: "failed call", Value: "ExtAudioFileOpenURL(url, &file)"}},
	}
	text := fe.String()
	assert.Equal(t, `Error Domain=com.apple.coreaudio.avfaudio Code=2003334207 "(null)" UserInfo={failed call=ExtAudioFileOpenURL(url, &file)}`, text)

	parsed, err := ParseFrameworkError(text)
	require.NoError(t, err)
	assert.Equal(t, fe, parsed)

	fourcc, ok := parsed.FourCC()
	require.True(t, ok)
	assert.Equal(t, "wht?", fourcc)
}

func TestParseFrameworkError_NotFound(t *testing.T) {
	_, err := ParseFrameworkError("会议讨论了下季度预算。")
	assert.ErrorIs(t, err, ErrNotFrameworkError)

	_, ok := FindFrameworkError("Error Domain=X")
	assert.False(t, ok)
}
