package api

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	testToken    = "good-token"
	testEmail    = "teacher@school.test"
	testPassword = "secret1"
)

// fakeBackend emulates the reading service routes the client talks to.
type fakeBackend struct {
	t   *testing.T
	srv *httptest.Server

	mu         sync.Mutex
	role       string
	history    []gin.H
	lessons    map[string]gin.H
	users      []gin.H
	requestIDs []string
	hits       map[string]int
	bodies     map[string]gin.H
	upload     struct {
		filename string
		data     string
		fields   map[string]string
	}
	// failNext makes the next n calls to a route return 503.
	failNext map[string]int
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fb := &fakeBackend{
		t:    t,
		role: "teacher",
		history: []gin.H{
			{"id": "l1", "topic": "Volcanoes", "is_assignment": false, "score": 3, "created_at": "2025-03-01T10:00:00Z"},
			{"id": "l2", "topic": "Bees", "is_assignment": true, "score": nil},
		},
		lessons: map[string]gin.H{
			"l1": {
				"id":      "l1",
				"topic":   "Volcanoes",
				"content": "Volcanoes erupt when magma rises.",
				"quiz": gin.H{
					"title": "Volcano check",
					"questions": []gin.H{
						{"question": "What rises?", "options": []string{"A) Magma", "B) Water"}, "correct_answer": "A"},
					},
				},
			},
		},
		users: []gin.H{
			{"id": "u1", "username": "Ana", "email": "ana@school.test", "role": "student", "grade": "5", "section": "B"},
		},
		hits:     map[string]int{},
		bodies:   map[string]gin.H{},
		failNext: map[string]int{},
	}

	r := gin.New()
	r.Use(fb.track)
	r.POST("/api/auth/login", fb.login)
	r.POST("/api/auth/register", fb.register)

	authed := r.Group("/api", fb.auth)
	authed.GET("/auth/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"email": testEmail, "username": "Ms T", "role": fb.currentRole()})
	})
	authed.GET("/reading/history", func(c *gin.Context) {
		fb.mu.Lock()
		defer fb.mu.Unlock()
		c.JSON(http.StatusOK, fb.history)
	})
	authed.GET("/reading/history/:id", fb.getLesson)
	authed.DELETE("/reading/history/:id", fb.deleteLesson)
	authed.POST("/reading/analyze-text", fb.create("text"))
	authed.POST("/reading/create-lesson", fb.create("topic"))
	authed.POST("/reading/upload", fb.uploadFile)
	authed.POST("/reading/feedback-analysis", func(c *gin.Context) {
		fb.bind(c, "feedback")
		c.JSON(http.StatusOK, gin.H{"feedback": "  Well done on the main idea.  "})
	})
	authed.POST("/chat/ask", func(c *gin.Context) {
		body := fb.bind(c, "ask")
		c.JSON(http.StatusOK, gin.H{"answer": "Because " + body["context"].(string)})
	})
	authed.GET("/users/search", func(c *gin.Context) {
		q := strings.ToLower(c.Query("q"))
		var out []gin.H
		for _, u := range fb.users {
			if strings.Contains(strings.ToLower(u["email"].(string)), q) {
				out = append(out, u)
			}
		}
		c.JSON(http.StatusOK, out)
	})
	authed.GET("/teacher/dashboard", func(c *gin.Context) {
		if fb.currentRole() == "student" {
			c.JSON(http.StatusForbidden, gin.H{"detail": "Teachers only"})
			return
		}
		c.JSON(http.StatusOK, []gin.H{
			{"student_name": "Ana", "topic": "Bees", "score": 2, "total": 3, "status": "completed", "timestamp": "2025-03-02T09:30:00"},
		})
	})
	authed.GET("/auth/admin/users", fb.adminOnly, func(c *gin.Context) { c.JSON(http.StatusOK, fb.users) })
	authed.PUT("/auth/admin/change-role", fb.adminOnly, func(c *gin.Context) {
		body := fb.bind(c, "change-role")
		if body["email"] != "ana@school.test" {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Usuario no encontrado"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
	authed.DELETE("/auth/admin/users/:email", fb.adminOnly, func(c *gin.Context) {
		fb.mu.Lock()
		fb.bodies["delete-user"] = gin.H{"email": c.Param("email")}
		fb.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"message": "deleted"})
	})

	fb.srv = httptest.NewServer(r)
	t.Cleanup(fb.srv.Close)
	return fb
}

func (fb *fakeBackend) track(c *gin.Context) {
	fb.mu.Lock()
	key := c.Request.Method + " " + c.Request.URL.Path
	fb.hits[key]++
	fb.requestIDs = append(fb.requestIDs, c.GetHeader("X-Request-ID"))
	fail := fb.failNext[key] > 0
	if fail {
		fb.failNext[key]--
	}
	fb.mu.Unlock()

	if fail {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"detail": "try later"})
		return
	}
	c.Next()
}

func (fb *fakeBackend) auth(c *gin.Context) {
	if c.GetHeader("Authorization") != "Bearer "+testToken {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Token inválido o expirado"})
		return
	}
	c.Next()
}

func (fb *fakeBackend) adminOnly(c *gin.Context) {
	if fb.currentRole() != "admin" {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "Requiere privilegios de Administrador"})
		return
	}
	c.Next()
}

func (fb *fakeBackend) bind(c *gin.Context, name string) gin.H {
	var body gin.H
	if err := c.ShouldBindJSON(&body); err != nil {
		fb.t.Errorf("%s: bad JSON body: %v", name, err)
	}
	fb.mu.Lock()
	fb.bodies[name] = body
	fb.mu.Unlock()
	return body
}

func (fb *fakeBackend) login(c *gin.Context) {
	if c.PostForm("username") != testEmail || c.PostForm("password") != testPassword {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Credenciales incorrectas"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": testToken, "token_type": "bearer", "role": fb.currentRole()})
}

func (fb *fakeBackend) register(c *gin.Context) {
	body := fb.bind(c, "register")
	if body["email"] == testEmail {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "El correo ya está registrado"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "created", "id": "u9"})
}

func (fb *fakeBackend) getLesson(c *gin.Context) {
	fb.mu.Lock()
	l, ok := fb.lessons[c.Param("id")]
	fb.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Lección no encontrada"})
		return
	}
	c.JSON(http.StatusOK, l)
}

func (fb *fakeBackend) deleteLesson(c *gin.Context) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	id := c.Param("id")
	for i, h := range fb.history {
		if h["id"] == id {
			fb.history = append(fb.history[:i], fb.history[i+1:]...)
			c.JSON(http.StatusOK, gin.H{"message": "deleted"})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"detail": "not found"})
}

func (fb *fakeBackend) create(source string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := fb.bind(c, source)
		if body["assign_to"] != nil {
			c.JSON(http.StatusOK, gin.H{"message": "assigned", "assigned_to": body["assign_to"]})
			return
		}
		if source == "text" && len(body["text"].(string)) < 10 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []gin.H{
				{"loc": []string{"body", "text"}, "msg": "too short", "type": "value_error"},
			}})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"lesson_id": "new-" + source,
			"text":      "Generated reading.",
			"quiz": []gin.H{
				{"question": "Q1?", "options": []string{"Red", "Blue", "Green"}, "answer": "Blue"},
				{"question": "Q2?", "options": []string{"A. One", "B. Two"}, "correctAnswer": "b"},
			},
		})
	}
}

func (fb *fakeBackend) uploadFile(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "file required"})
		return
	}
	f, _ := fh.Open()
	data, _ := io.ReadAll(f)
	f.Close()

	fb.mu.Lock()
	fb.upload.filename = fh.Filename
	fb.upload.data = string(data)
	fb.upload.fields = map[string]string{
		"num_questions": c.PostForm("num_questions"),
		"difficulty":    c.PostForm("difficulty"),
		"assign_to":     c.PostForm("assign_to"),
	}
	fb.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"filename":  fh.Filename,
		"lesson_id": "up-1",
		"text":      string(data),
		"quiz": []gin.H{
			{"question": "What is it about?", "options": []string{"A) Frogs", "B) Ponds"}, "correct_letter": "A"},
		},
	})
}

func (fb *fakeBackend) currentRole() string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.role
}

func (fb *fakeBackend) setRole(role string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.role = role
}

func (fb *fakeBackend) fail(key string, n int) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.failNext[key] = n
}

func (fb *fakeBackend) lastRequestID() string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if len(fb.requestIDs) == 0 {
		return ""
	}
	return fb.requestIDs[len(fb.requestIDs)-1]
}

func (fb *fakeBackend) hitCount(key string) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.hits[key]
}

func (fb *fakeBackend) body(name string) gin.H {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.bodies[name]
}

func newSlowServer(t *testing.T, delay time.Duration) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
		}
		w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

// newBulkyServer answers every request with n bytes of JSON.
func newBulkyServer(t *testing.T, n int) string {
	t.Helper()
	body := append(append([]byte(`["`), bytes.Repeat([]byte("a"), n-4)...), '"', ']')
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}
