package media_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/cookistry/backend/internal/media"
)

type fakeS3 struct {
	inputs []*s3.PutObjectInput
	bodies []string
	err    error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, string(body))
	return &s3.PutObjectOutput{}, nil
}

func TestSaveImage(t *testing.T) {
	client := &fakeS3{}
	store := media.NewS3StoreWithClient(client, "recipes", "https://cdn.example.com/")

	url, err := store.Save(context.Background(), media.KindImage, media.Upload{
		Filename: "Pie.PNG",
		Size:     4,
		Body:     strings.NewReader("data"),
	})
	require.NoError(t, err)
	require.Len(t, client.inputs, 1)

	in := client.inputs[0]
	assert.Equal(t, "recipes", aws.ToString(in.Bucket))
	assert.Equal(t, "image/png", aws.ToString(in.ContentType))
	assert.True(t, strings.HasPrefix(aws.ToString(in.Key), "images/"))
	assert.True(t, strings.HasSuffix(aws.ToString(in.Key), ".png"))
	assert.Equal(t, "https://cdn.example.com/"+aws.ToString(in.Key), url)
	assert.Equal(t, "data", client.bodies[0])
}

func TestSaveRejectsBadInput(t *testing.T) {
	client := &fakeS3{}
	store := media.NewS3StoreWithClient(client, "recipes", "https://cdn.example.com")
	ctx := context.Background()

	_, err := store.Save(ctx, media.KindImage, media.Upload{Filename: "script.exe", Size: 1, Body: strings.NewReader("x")})
	assert.ErrorIs(t, err, media.ErrUnsupportedType)

	_, err = store.Save(ctx, media.KindImage, media.Upload{Filename: "clip.mp4", Size: 1, Body: strings.NewReader("x")})
	assert.ErrorIs(t, err, media.ErrUnsupportedType)

	_, err = store.Save(ctx, media.KindImage, media.Upload{Filename: "huge.jpg", Size: 6 << 20, Body: strings.NewReader("x")})
	assert.ErrorIs(t, err, media.ErrTooLarge)

	assert.Empty(t, client.inputs)
}

func TestSaveWrapsClientErrors(t *testing.T) {
	store := media.NewS3StoreWithClient(&fakeS3{err: errors.New("access denied")}, "recipes", "https://cdn.example.com")

	_, err := store.Save(context.Background(), media.KindVideo, media.Upload{Filename: "clip.mp4", Size: 1, Body: strings.NewReader("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}
