// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sdk

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadMedia(t *testing.T) {
	fake := newFakeDingTalk(t)
	var (
		filename, content, mediaType, token string
	)
	fake.handle("/media/upload", func(w http.ResponseWriter, r *http.Request) {
		mediaType = r.URL.Query().Get("type")
		token = r.URL.Query().Get("access_token")
		f, hdr, err := r.FormFile("media")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		filename, content = hdr.Filename, string(data)
		writeJSON(w, map[string]any{
			"errcode":    0,
			"type":       "image",
			"media_id":   "@lADO123",
			"created_at": 1700000000000,
		})
	})
	c := newTestClient(t, fake, newFakeClock())

	up, err := c.UploadMedia(context.Background(), MediaImage, "logo.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "image", up.Type)
	assert.Equal(t, "@lADO123", up.MediaID)
	assert.True(t, up.CreatedAt.Equal(time.UnixMilli(1700000000000)))

	assert.Equal(t, "image", mediaType)
	assert.Equal(t, "token-1", token)
	assert.Equal(t, "logo.png", filename)
	assert.Equal(t, "png-bytes", content)
}

func TestUploadMedia_Validation(t *testing.T) {
	fake := newFakeDingTalk(t)
	c := newTestClient(t, fake, newFakeClock())
	ctx := context.Background()

	tests := []struct {
		name      string
		mediaType string
		filename  string
		reader    io.Reader
		field     string
	}{
		{"bad type", "gif", "a.gif", strings.NewReader("x"), "type"},
		{"no type", "", "a.png", strings.NewReader("x"), "type"},
		{"no filename", MediaFile, "", strings.NewReader("x"), "filename"},
		{"no content", MediaVoice, "a.amr", nil, "media"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.UploadMedia(ctx, tt.mediaType, tt.filename, tt.reader)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
	assert.Equal(t, 0, fake.total())
}
