package controllers

import (
	"backoffice/datatable"
	"backoffice/models"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

func taskStatuses() map[string]interface{} {
	m := map[string]interface{}{}
	for _, s := range models.TaskStatuses {
		m[string(s)] = string(s)
	}
	return m
}

func taskPriorities() map[string]interface{} {
	m := map[string]interface{}{}
	for _, p := range models.TaskPriorities {
		m[string(p)] = string(p)
	}
	return m
}

func taskOptions() (status, priority []datatable.Option) {
	for _, s := range models.TaskStatuses {
		status = append(status, datatable.Option{Value: string(s), Label: s.Label()})
	}
	for _, p := range models.TaskPriorities {
		priority = append(priority, datatable.Option{Value: string(p), Label: p.Label()})
	}
	return
}

var taskKind = func() datatable.Kind {
	statusOptions, priorityOptions := taskOptions()

	return datatable.Kind{
		Name:       "tasks",
		Columns:    "t.id, t.title, t.description, t.status, t.priority, t.due_date, t.created_at, t.updated_at",
		From:       "tasks t",
		Key:        "t.id",
		Searchable: []string{"t.title", "t.description"},
		Sortable: map[string]string{
			"id":         "t.id",
			"title":      "t.title",
			"status":     "t.status",
			"priority":   "t.priority",
			"due_date":   "t.due_date",
			"created_at": "t.created_at",
			"updated_at": "t.updated_at",
		},
		Filters: []datatable.Filter{
			{Param: "status", Column: "t.status", Decode: datatable.Labels(taskStatuses()), Options: statusOptions},
			{Param: "priority", Column: "t.priority", Decode: datatable.Labels(taskPriorities()), Options: priorityOptions},
		},
	}
}()

func taskRow(task models.Task, loc *time.Location) models.TaskRow {
	return models.TaskRow{
		Id:            task.Id,
		Title:         task.Title,
		Description:   task.Description.String,
		Status:        string(task.Status),
		StatusLabel:   task.Status.Label(),
		Priority:      string(task.Priority),
		PriorityLabel: task.Priority.Label(),
		DueDate:       task.DueDate.Format(models.DateFormat, time.UTC),
		CreatedAt:     task.CreatedAt.Format(models.DateTimeFormat, loc),
	}
}

func (api *API) GetTasks(c *gin.Context) {
	loc := api.location()
	list(api, c, taskKind, func(task models.Task) models.TaskRow {
		return taskRow(task, loc)
	})
}

func (api *API) GetTask(c *gin.Context) {
	task, ok := api.loadTask(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, taskRow(task, api.location()))
}

func (api *API) loadTask(c *gin.Context) (task models.Task, ok bool) {
	id, ok := paramID(c)
	if !ok {
		sendError(c, http.StatusNotFound, "task-not-found")
		return task, false
	}

	err := api.findOne(c.Request.Context(), taskKind, id, &task)
	if err == ErrNotFound {
		sendError(c, http.StatusNotFound, "task-not-found")
		return task, false
	}

	if err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return task, false
	}

	return task, true
}

func (api *API) CreateTask(c *gin.Context) {
	var req models.TaskRequest
	if err := c.ShouldBind(&req); err != nil {
		log.Println(err)
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}

	task, errs := validateTask(req, newTask)
	if len(errs) > 0 {
		sendFieldErrors(c, errs)
		return
	}

	ctx := c.Request.Context()

	var id int64
	err := api.Db.QueryRowxContext(ctx, api.Db.Rebind(`
		INSERT INTO tasks (title, description, status, priority, due_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id
	`), task.Title, task.Description, task.Status, task.Priority, dueDate(task)).Scan(&id)
	if err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	if err := api.findOne(ctx, taskKind, id, &task); err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Task created successfully",
		"data":    taskRow(task, api.location()),
	})
}

func (api *API) UpdateTask(c *gin.Context) {
	current, ok := api.loadTask(c)
	if !ok {
		return
	}

	var req models.TaskRequest
	if err := c.ShouldBind(&req); err != nil {
		log.Println(err)
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}

	task, errs := validateTask(req, current)
	if len(errs) > 0 {
		sendFieldErrors(c, errs)
		return
	}

	ctx := c.Request.Context()

	if _, err := api.Db.ExecContext(ctx, api.Db.Rebind(`
		UPDATE tasks
		SET title = ?, description = ?, status = ?, priority = ?, due_date = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`), task.Title, task.Description, task.Status, task.Priority, dueDate(task), current.Id); err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	if err := api.findOne(ctx, taskKind, current.Id, &task); err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task updated successfully",
		"data":    taskRow(task, api.location()),
	})
}

func dueDate(task models.Task) interface{} {
	if !task.DueDate.Valid {
		return nil
	}
	return task.DueDate.Time.Format(models.DateFormat)
}

func (api *API) DeleteTask(c *gin.Context) {
	api.deleteOne(c, "tasks", "task-not-found")
}

func (api *API) DeleteTasks(c *gin.Context) {
	api.BatchDeletes(c, "tasks")
}

func (api *API) ExportTasks(c *gin.Context) {
	header := []string{"ID", "Title", "Status", "Priority", "Due Date", "Created At"}
	export(api, c, taskKind, header, func(task models.Task, loc *time.Location) []string {
		return []string{
			strconv.FormatInt(task.Id, 10),
			task.Title,
			task.Status.Label(),
			task.Priority.Label(),
			task.DueDate.Format(models.DateFormat, time.UTC),
			task.CreatedAt.Format(models.DateTimeFormat, loc),
		}
	})
}

func (api *API) GetTaskOptions(c *gin.Context) {
	api.listingOptions(c, taskKind, nil)
}

// newTask holds the values a created task starts from.
var newTask = models.Task{Status: models.Pending, Priority: models.Medium}

// validateTask checks req; an omitted status or priority keeps the one in base.
func validateTask(req models.TaskRequest, base models.Task) (task models.Task, errs []models.FieldError) {
	task.Title = strings.TrimSpace(req.Title)
	task.Description = nullString(req.Description)

	if task.Title == "" {
		errs = append(errs, models.FieldError{Field: "title", Message: "missing-title"})
	} else if tooLong(task.Title) {
		errs = append(errs, models.FieldError{Field: "title", Message: "title-too-long"})
	}

	status := strings.ToLower(strings.TrimSpace(req.Status))
	if status == "" {
		status = string(base.Status)
	}
	if _, ok := taskStatuses()[status]; !ok {
		errs = append(errs, models.FieldError{Field: "status", Message: "invalid-status"})
	}
	task.Status = models.TaskStatus(status)

	priority := strings.ToLower(strings.TrimSpace(req.Priority))
	if priority == "" {
		priority = string(base.Priority)
	}
	if _, ok := taskPriorities()[priority]; !ok {
		errs = append(errs, models.FieldError{Field: "priority", Message: "invalid-priority"})
	}
	task.Priority = models.TaskPriority(priority)

	if d := strings.TrimSpace(req.DueDate); d != "" {
		t, err := time.Parse(models.DateFormat, d)
		if err != nil {
			errs = append(errs, models.FieldError{Field: "due_date", Message: "invalid-due-date"})
		} else {
			task.DueDate = models.NullTime{Time: t, Valid: true}
		}
	}

	return
}
