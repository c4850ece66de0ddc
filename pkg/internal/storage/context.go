package storage

import "context"

type managerKey struct{}

// WithManager 把 Manager 挂到 ctx 上，后台任务与请求共用同一套客户端.
func WithManager(ctx context.Context, mgr *Manager) context.Context {
	return context.WithValue(ctx, managerKey{}, mgr)
}

// FromContext 取不到时返回 nil.
func FromContext(ctx context.Context) *Manager {
	if ctx == nil {
		return nil
	}

	mgr, _ := ctx.Value(managerKey{}).(*Manager)

	return mgr
}
