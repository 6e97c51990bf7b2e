package xspan

import "context"

// TraceMethod 为一次进程内方法调用创建 internal span。
//
// method-call 开关关闭时直接调用 fn。fn 返回的错误标注后原样返回；
// panic 标注后以原值重新 panic。
func (t *Tracing) TraceMethod(ctx context.Context, name string, fn func(ctx context.Context) error) (err error) {
	if fn == nil {
		return ErrNilFunc
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if !t.switches.Method {
		return fn(ctx)
	}

	ctx, span := t.StartSpan(ctx, name, KindInternal, map[string]any{
		TagCategory: CategoryMethod,
		TagKind:     KindInternal.String(),
	})
	defer span.Finish()
	defer func() {
		if r := recover(); r != nil {
			t.RecordError(span, AsError(r))
			panic(r)
		}
	}()

	if err = fn(ctx); err != nil {
		t.RecordError(span, err)
		return err
	}
	span.SetTag(TagOTelStatusCode, StatusOK)
	return nil
}
