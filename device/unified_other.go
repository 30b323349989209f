//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package device

const unifiedSupported = false

type unified struct{}

func newUnified() (*unified, error) {
	return nil, ErrUnsupportedBackend
}

func (u *unified) kind() Kind { return KindUnified }

func (u *unified) alloc(count int) (region, error) { return region{}, ErrUnsupportedBackend }

func (u *unified) free(r region) error { return ErrUnsupportedBackend }

func (u *unified) inUse() int64 { return 0 }

func (u *unified) publish() {}

func (u *unified) acquire() {}
