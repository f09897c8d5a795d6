package notify

import (
	"errors"
	"os"
	"testing"
)

func stubSend(t *testing.T, err error) *[][3]string {
	t.Helper()
	var calls [][3]string
	orig := send
	send = func(title, body, icon string) error {
		calls = append(calls, [3]string{title, body, icon})
		return err
	}
	t.Cleanup(func() { send = orig })
	return &calls
}

func TestNotify(t *testing.T) {
	calls := stubSend(t, nil)
	Init("dictate-test", []byte("png"))
	t.Cleanup(func() { os.Remove(iconPath) })

	if err := Notify("Transcription Complete", "copied"); err != nil {
		t.Fatal(err)
	}
	if len(*calls) != 1 {
		t.Fatalf("send called %d times", len(*calls))
	}
	got := (*calls)[0]
	if got[0] != "Transcription Complete" || got[1] != "copied" {
		t.Errorf("send(%q, %q)", got[0], got[1])
	}
	if data, err := os.ReadFile(got[2]); err != nil || string(data) != "png" {
		t.Errorf("icon file %q: %v", got[2], err)
	}
}

func TestNotifyDisabled(t *testing.T) {
	calls := stubSend(t, errors.New("should not be called"))
	SetEnabled(false)
	defer SetEnabled(true)

	if err := Notify("t", "b"); err != nil {
		t.Errorf("disabled Notify returned %v", err)
	}
	if len(*calls) != 0 {
		t.Errorf("send called while disabled")
	}
}

func TestNotifyError(t *testing.T) {
	stubSend(t, errors.New("dbus unavailable"))
	if err := Notify("t", "b"); err == nil {
		t.Error("expected error from send")
	}
}
