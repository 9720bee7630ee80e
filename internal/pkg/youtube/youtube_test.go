package youtube

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/youtube/v3"

	"txt2tube/internal/model"
)

type fakeInsert struct {
	errs   []error
	calls  int
	videos []*youtube.Video
	bodies []string
}

func (f *fakeInsert) insert(_ context.Context, video *youtube.Video, media io.Reader, progress googleapi.ProgressUpdater) (string, error) {
	f.calls++
	f.videos = append(f.videos, video)
	data, _ := io.ReadAll(media)
	f.bodies = append(f.bodies, string(data))
	if progress != nil {
		progress(int64(len(data))/2, 0)
		progress(int64(len(data))/2, 0)
		progress(int64(len(data)), 0)
	}
	if f.calls <= len(f.errs) {
		return "", f.errs[f.calls-1]
	}
	return "vid123", nil
}

func newTestClient(f *fakeInsert, maxRetries int, waits *[]time.Duration) *Client {
	c := newClient(f.insert, Options{MaxRetries: maxRetries, ShowProgress: true})
	c.sleep = func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
	return c
}

func TestBackoff(t *testing.T) {
	Convey("Backoff = 2^n + 0.2n 秒", t, func() {
		So(Backoff(0), ShouldEqual, time.Second)
		So(Backoff(1), ShouldEqual, 2200*time.Millisecond)
		So(Backoff(3), ShouldEqual, 8600*time.Millisecond)
	})
}

func TestIsRetriable(t *testing.T) {
	Convey("IsRetriable", t, func() {
		So(IsRetriable(&googleapi.Error{Code: 503}), ShouldBeTrue)
		So(IsRetriable(&googleapi.Error{Code: 500}), ShouldBeTrue)
		So(IsRetriable(&googleapi.Error{Code: 400}), ShouldBeFalse)
		So(IsRetriable(&googleapi.Error{Code: 403}), ShouldBeFalse)
		So(IsRetriable(errors.New("connection reset")), ShouldBeTrue)
		So(IsRetriable(context.Canceled), ShouldBeFalse)
		So(IsRetriable(nil), ShouldBeFalse)
	})
}

func TestClient_Upload(t *testing.T) {
	Convey("Upload", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "video.mp4")
		So(os.WriteFile(path, []byte("0123456789"), 0o644), ShouldBeNil)
		md := model.UploadMetadata{
			Title:         "【女優】昭和\x07の名女優",
			Description:   "説明",
			Tags:          []string{"女優", "昭和"},
			CategoryID:    "22",
			PrivacyStatus: model.PrivacyPrivate,
		}
		var waits []time.Duration

		Convey("一次成功", func() {
			f := &fakeInsert{}
			id, err := newTestClient(f, 8, &waits).Upload(ctx, path, md)
			So(err, ShouldBeNil)
			So(id, ShouldEqual, "vid123")
			So(f.calls, ShouldEqual, 1)
			So(f.videos[0].Snippet.Title, ShouldEqual, "【女優】昭和の名女優")
			So(f.videos[0].Snippet.CategoryId, ShouldEqual, "22")
			So(f.videos[0].Status.PrivacyStatus, ShouldEqual, "private")
			So(f.bodies[0], ShouldEqual, "0123456789")
		})

		Convey("临时错误后重试成功，每次从头读取文件", func() {
			f := &fakeInsert{errs: []error{&googleapi.Error{Code: 503}, errors.New("connection reset")}}
			id, err := newTestClient(f, 8, &waits).Upload(ctx, path, md)
			So(err, ShouldBeNil)
			So(id, ShouldEqual, "vid123")
			So(f.calls, ShouldEqual, 3)
			So(waits, ShouldResemble, []time.Duration{Backoff(0), Backoff(1)})
			So(f.bodies[2], ShouldEqual, "0123456789")
		})

		Convey("不可重试的错误立即失败", func() {
			f := &fakeInsert{errs: []error{&googleapi.Error{Code: 403, Message: "quotaExceeded"}}}
			_, err := newTestClient(f, 8, &waits).Upload(ctx, path, md)
			So(errors.Is(err, ErrUploadFailed), ShouldBeTrue)
			So(f.calls, ShouldEqual, 1)
			So(waits, ShouldBeEmpty)
		})

		Convey("重试次数用尽", func() {
			errs := make([]error, 10)
			for i := range errs {
				errs[i] = &googleapi.Error{Code: 500}
			}
			f := &fakeInsert{errs: errs}
			_, err := newTestClient(f, 2, &waits).Upload(ctx, path, md)
			So(errors.Is(err, ErrUploadFailed), ShouldBeTrue)
			So(f.calls, ShouldEqual, 3)
			So(len(waits), ShouldEqual, 2)
		})

		Convey("文件不存在", func() {
			f := &fakeInsert{}
			_, err := newTestClient(f, 8, &waits).Upload(ctx, filepath.Join(t.TempDir(), "none.mp4"), md)
			So(errors.Is(err, ErrUploadFailed), ShouldBeTrue)
			So(f.calls, ShouldEqual, 0)
		})
	})
}

func TestProgressReporter(t *testing.T) {
	Convey("进度只在百分比变化时输出", t, func() {
		p := newProgressReporter(200, time.Now())
		p.Update(0, 200)
		p.Update(1, 200)
		p.Update(2, 200)
		p.Update(3, 200)
		p.Update(100, 0)
		p.Update(200, 200)
		p.Update(200, 200)
		So(p.reported, ShouldResemble, []int{0, 1, 50, 100})
	})

	Convey("FormatElapsed", t, func() {
		So(FormatElapsed(0), ShouldEqual, "0:00:00")
		So(FormatElapsed(3725*time.Second+400*time.Millisecond), ShouldEqual, "1:02:05")
	})

	Convey("TransientError", t, func() {
		err := classify(&googleapi.Error{Code: 502})
		So(err.Status, ShouldEqual, 502)
		So(err.Error(), ShouldContainSubstring, "http 502")
		So(classify(io.ErrUnexpectedEOF).Status, ShouldEqual, 0)
	})
}

func TestAuthenticate(t *testing.T) {
	Convey("Authenticate", t, func() {
		ctx := context.Background()
		dir := t.TempDir()

		Convey("缺少 client secret 文件时返回 ErrAuthentication", func() {
			_, err := Authenticate(ctx, AuthConfig{CredentialsFile: filepath.Join(dir, "missing.json")})
			So(errors.Is(err, ErrAuthentication), ShouldBeTrue)

			_, err = Authenticate(ctx, AuthConfig{})
			So(errors.Is(err, ErrAuthentication), ShouldBeTrue)
		})

		Convey("令牌有效时直接使用", func() {
			secret := filepath.Join(dir, "client_secret.json")
			So(os.WriteFile(secret, []byte(`{"installed":{"client_id":"id","client_secret":"secret",`+
				`"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token",`+
				`"redirect_uris":["http://localhost"]}}`), 0o600), ShouldBeNil)

			tokenFile := filepath.Join(dir, "token.json")
			tok := &oauth2.Token{AccessToken: "access", TokenType: "Bearer", RefreshToken: "refresh", Expiry: time.Now().Add(time.Hour)}
			So(SaveToken(tokenFile, tok), ShouldBeNil)

			loaded, err := LoadToken(tokenFile)
			So(err, ShouldBeNil)
			So(loaded.AccessToken, ShouldEqual, "access")
			So(loaded.RefreshToken, ShouldEqual, "refresh")

			client, err := Authenticate(ctx, AuthConfig{CredentialsFile: secret, TokenFile: tokenFile})
			So(err, ShouldBeNil)
			So(client, ShouldHaveSameTypeAs, &http.Client{})
		})
	})
}
