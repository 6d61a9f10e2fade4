package mysql

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
)

// RetryPolicy は「何回・どのくらい待つか」をまとめた設定。
type RetryPolicy struct {
	MaxAttempts int           // 合計の試行回数
	BaseBackoff time.Duration // 1 回目の待ち時間
	MaxBackoff  time.Duration // 待ち時間の上限
}

// DefaultReadRetry は読み取り（List / Get）向けのデフォルト。
var DefaultReadRetry = RetryPolicy{
	MaxAttempts: 3,
	BaseBackoff: 50 * time.Millisecond,
	MaxBackoff:  500 * time.Millisecond,
}

// MySQL のエラー番号
const (
	errLockWaitTimeout uint16 = 1205
	errDeadlock        uint16 = 1213
)

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.BaseBackoff <= 0 {
		p.BaseBackoff = 10 * time.Millisecond
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = 200 * time.Millisecond
	}
	return p
}

// doWithRetry は retryable なエラーのみをバックオフ付きで再実行する。
// ctx の deadline / cancel が来たら即中断する。
func doWithRetry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	policy = policy.normalized()

	var err error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err = fn(); err == nil {
			return nil
		}
		if !isRetryableDBErr(err) || attempt == policy.MaxAttempts {
			return err
		}

		if sleepErr := sleepWithContext(ctx, backoff(policy.BaseBackoff, policy.MaxBackoff, attempt)); sleepErr != nil {
			return sleepErr
		}
	}
	return err
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// backoff は base * 2^(attempt-1) を max で頭打ちにする（ジッタ無し）。
func backoff(base, max time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

// isRetryableDBErr は一時的に起きがちな DB / ネットワーク系だけ true を返す。
func isRetryableDBErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, gomysql.ErrInvalidConn) {
		return true
	}

	var me *gomysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == errDeadlock || me.Number == errLockWaitTimeout
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}

	// ドライバがラップしないソケットエラー
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") || strings.Contains(msg, "broken pipe")
}
