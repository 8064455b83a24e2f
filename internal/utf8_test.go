package internal

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/ProtonMail/sop-external/sop"
)

var invalidUtf8 = []string{"f0288cbc", "fc80808080af"}

var validUtf8 = []string{"Hell⌘o☏", "World", "||||"}

func TestUtf8CheckWriter(t *testing.T) {
	for _, invalid := range invalidUtf8 {
		buff := bytes.NewBuffer(nil)
		writer := NewUtf8CheckWriter(buff)
		data, _ := hex.DecodeString(invalid)
		var err error
		for id := range data {
			if _, err = writer.Write(data[id : id+1]); err != nil {
				break
			}
		}
		errClose := writer.Close()
		if err == nil && errClose == nil {
			t.Error("Should be invalid utf8")
		}
	}

	for _, valid := range validUtf8 {
		buff := bytes.NewBuffer(nil)
		writer := NewUtf8CheckWriter(buff)
		data := []byte(valid)
		for id := range data {
			if _, err := writer.Write(data[id : id+1]); err != nil {
				t.Error("Should be valid utf8")
			}
		}
		if err := writer.Close(); err != nil {
			t.Error("Should be valid utf8")
		}
		assert.Equal(t, valid, buff.String())
	}
}

func TestReadUtf8(t *testing.T) {
	var out bytes.Buffer
	n, err := ReadUtf8(&out, strings.NewReader("Hell⌘o☏"))
	assert.NoError(t, err)
	assert.Equal(t, int64(len("Hell⌘o☏")), n)

	truncated, _ := hex.DecodeString("48e28c")
	_, err = ReadUtf8(&out, bytes.NewReader(truncated))
	assert.True(t, errors.Is(err, sop.ErrExpectedText))
}

func TestLines(t *testing.T) {
	assert.Equal(t, "sqop 1.2.3", FirstLine("sqop 1.2.3\r\nmore\n"))
	assert.Equal(t, "", FirstLine(""))
	assert.Equal(t, "a�b", SanitizeString("a\xffb"))
}
