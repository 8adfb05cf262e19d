package oidc

import (
	"context"
	"time"

	"golang.org/x/oauth2"
)

// startSessionCheck polls the userinfo endpoint every interval. The first failed
// check drops the local session and ends the loop.
func (a *Adapter) startSessionCheck(ctx context.Context, interval time.Duration) {
	checkCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	a.mu.Lock()
	a.stopCheck = cancel
	a.mu.Unlock()

	a.checkWG.Add(1)
	go func() {
		defer a.checkWG.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-checkCtx.Done():
				return
			case <-ticker.C:
				if !a.checkSession(checkCtx) {
					return
				}
			}
		}
	}()
}

// checkSession reports whether the session is still accepted by the provider.
func (a *Adapter) checkSession(ctx context.Context) bool {
	token := a.Token()
	if token == "" {
		return false
	}

	a.mu.RLock()
	op := a.provider
	a.mu.RUnlock()

	_, err := op.UserInfo(a.clientContext(ctx), oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	if err == nil {
		return true
	}
	if ctx.Err() != nil {
		return false
	}

	a.logger.WarnContext(ctx, "session check failed, dropping session", "error", err)
	a.clearSession()
	if delErr := a.store.Delete(ctx, a.cfg.SessionKey()); delErr != nil {
		a.logger.WarnContext(ctx, "delete session after failed check", "error", delErr)
	}
	return false
}

func (a *Adapter) stopSessionCheck() {
	a.mu.Lock()
	cancel := a.stopCheck
	a.stopCheck = nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	a.checkWG.Wait()
}
