package http

import (
	"context"
	"encoding/json"
	"log"
	"strconv"

	nethttp "net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/hankgpa/gpa-live/internal/auth/middleware"
	"github.com/hankgpa/gpa-live/internal/course"
	syncx "github.com/hankgpa/gpa-live/internal/sync"
)

// App bundles the dependencies shared by REST and websocket handlers.
// Handlers only — routes remain in main.go.
type App struct {
	Store  course.Store
	Hub    *syncx.Hub
	Events *syncx.EventRepo // nil when running on the in-memory store
}

func identityFromRequest(r *nethttp.Request) string {
	return authmw.SubjectFromContext(r.Context())
}

// pushView fans the owner's recomputed course list out to every live channel.
// Called strictly after the mutation committed; a listing failure here is
// logged and the mutation stands.
func (app *App) pushView(ctx context.Context, owner string) {
	view, err := app.Store.ListCourses(ctx, owner, course.OrderFinalDesc)
	if err != nil {
		log.Printf("push view for %s: %v", owner, err)
		return
	}
	app.Hub.Publish(owner, syncx.Event{Type: syncx.EventUpdate, Courses: view})
}

func (app *App) logMutation(ctx context.Context, owner, typ, key string, data any) {
	if app.Events == nil {
		return
	}
	buf, _ := json.Marshal(data)
	if err := app.Events.Append(ctx, syncx.MutationEvent{
		Owner: owner, Type: typ, Key: key, DataJSON: string(buf),
	}); err != nil {
		log.Printf("append event log: %v", err)
	}
}

// ListCoursesHandler handles GET /api/courses. Default order is newest first;
// ?order=final sorts by final score descending.
func (app *App) ListCoursesHandler() nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		owner := identityFromRequest(r)
		order := course.OrderCreatedDesc
		if r.URL.Query().Get("order") == "final" {
			order = course.OrderFinalDesc
		}
		view, err := app.Store.ListCourses(r.Context(), owner, order)
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, nethttp.StatusOK, view)
	}
}

// AddCourseHandler handles POST /api/courses.
func (app *App) AddCourseHandler() nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		owner := identityFromRequest(r)
		var in course.CourseInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, nethttp.StatusBadRequest, "bad json")
			return
		}
		c, err := app.Store.AddCourse(r.Context(), owner, in)
		if err != nil {
			storeError(w, err)
			return
		}
		app.logMutation(r.Context(), owner, "CourseAdded", strconv.FormatInt(c.ID, 10), c)
		app.pushView(r.Context(), owner)
		writeJSON(w, nethttp.StatusCreated, c)
	}
}

// DeleteCourseHandler handles DELETE /api/courses/{id}.
func (app *App) DeleteCourseHandler() nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		owner := identityFromRequest(r)
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeError(w, nethttp.StatusBadRequest, "invalid course id")
			return
		}
		if err := app.Store.DeleteCourse(r.Context(), owner, id); err != nil {
			storeError(w, err)
			return
		}
		app.logMutation(r.Context(), owner, "CourseDeleted", strconv.FormatInt(id, 10), nil)
		app.Hub.Publish(owner, syncx.Event{Type: syncx.EventDeleted, ID: id})
		app.pushView(r.Context(), owner)
		w.WriteHeader(nethttp.StatusNoContent)
	}
}
