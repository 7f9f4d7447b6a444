package auth

import "github.com/pkg/browser"

// BrowserOpener abstracts launching the system browser so flows can be
// tested without one.
type BrowserOpener interface {
	Open(url string) error
}

// SystemBrowser opens URLs with the platform default browser.
type SystemBrowser struct{}

func (SystemBrowser) Open(url string) error {
	return browser.OpenURL(url)
}
