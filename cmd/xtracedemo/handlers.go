package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/omeyang/xtracer/pkg/trace/xgin"
	"github.com/omeyang/xtracer/pkg/trace/xinbound"
	"github.com/omeyang/xtracer/pkg/trace/xoutbound"
	"github.com/omeyang/xtracer/pkg/trace/xspan"
)

const userTTL = time.Minute

// user 演示用的响应体
type user struct {
	ID      string `json:"id"`
	Cached  bool   `json:"cached"`
	Profile string `json:"profile,omitempty"`
	Stored  bool   `json:"stored"`
}

// statusError 携带 HTTP 状态码的错误
type statusError struct {
	code int
	msg  string
}

func (e *statusError) Error() string   { return e.msg }
func (e *statusError) StatusCode() int { return e.code }

// app 演示服务的依赖，upstream 与 mongo 可为 nil
type app struct {
	tracing  *xspan.Tracing
	redis    redis.UniversalClient
	upstream *resty.Client
	mongo    *mongo.Client
}

// muxHandler 返回包装好追踪中间件的 ServeMux
func (a *app) muxHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		u, err := a.loadUser(r.Context(), r.PathValue("id"))
		if err != nil {
			xinbound.DefaultErrorWriter(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	})
	mux.HandleFunc("GET /fail", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
	})
	mux.HandleFunc("GET /panic", func(http.ResponseWriter, *http.Request) {
		panic("demo panic")
	})
	return xinbound.New(a.tracing, xinbound.WithRouter(mux)).Middleware(mux)
}

// ginEngine 返回接入追踪中间件的 gin 引擎，handler 通过 c.Error 抛出错误
func (a *app) ginEngine() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), xgin.Middleware(a.tracing))
	engine.GET("/users/:id", func(c *gin.Context) {
		u, err := a.loadUser(c.Request.Context(), c.Param("id"))
		if err != nil {
			_ = c.Error(err)
			c.JSON(statusOf(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, u)
	})
	engine.GET("/fail", func(c *gin.Context) {
		err := &statusError{code: http.StatusServiceUnavailable, msg: "upstream unavailable"}
		_ = c.Error(err)
		c.JSON(err.code, gin.H{"error": err.msg})
	})
	return engine
}

// loadUser 读缓存，未命中时查询上游与 mongo 并回填
func (a *app) loadUser(ctx context.Context, id string) (*user, error) {
	if id == "" {
		return nil, &statusError{code: http.StatusBadRequest, msg: "empty id"}
	}

	u := &user{ID: id}
	err := a.tracing.TraceMethod(ctx, "app.loadUser", func(ctx context.Context) error {
		key := "user:" + id
		cached, err := a.redis.Get(ctx, key).Result()
		switch {
		case err == nil:
			u.Cached = true
			u.Profile = cached
			return nil
		case !errors.Is(err, redis.Nil):
			return err
		}

		if u.Profile, err = a.fetchProfile(ctx, id); err != nil {
			return err
		}
		if u.Stored, err = a.findStored(ctx, id); err != nil {
			return err
		}
		return a.redis.Set(ctx, key, u.Profile, userTTL).Err()
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (a *app) fetchProfile(ctx context.Context, id string) (string, error) {
	if a.upstream == nil {
		return "profile-" + id, nil
	}
	resp, err := a.upstream.R().SetContext(ctx).SetPathParam("id", id).Get("/profiles/{id}")
	if err != nil {
		return "", err
	}
	if err := xoutbound.ExpectStatus(resp.RawResponse, http.StatusOK); err != nil {
		return "", err
	}
	return resp.String(), nil
}

func (a *app) findStored(ctx context.Context, id string) (bool, error) {
	if a.mongo == nil {
		return false, nil
	}
	err := a.mongo.Database("xtracedemo").Collection("users").FindOne(ctx, bson.M{"_id": id}).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return false, nil
	default:
		return false, fmt.Errorf("find user %s: %w", id, err)
	}
}

func statusOf(err error) int {
	var sc xspan.StatusCoder
	if errors.As(err, &sc) && sc.StatusCode() >= 400 {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
