package a2a

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func textMessage(role MessageRole, text string) Message {
	return Message{Role: role, Parts: []Part{NewTextPart(text)}}
}

func textArtifact(index int, text string) Artifact {
	return Artifact{Index: index, Parts: []Part{NewTextPart(text)}}
}

func TestTaskState_IsTerminal(t *testing.T) {
	terminal := map[TaskState]bool{
		TaskStateSubmitted:     false,
		TaskStateWorking:       false,
		TaskStateInputRequired: false,
		TaskStateCompleted:     true,
		TaskStateFailed:        true,
		TaskStateCanceled:      true,
		TaskStateUnknown:       false,
	}
	for state, want := range terminal {
		if got := state.IsTerminal(); got != want {
			t.Errorf("IsTerminal(%s) = %v, want %v", state, got, want)
		}
	}
}

func TestTask_AddMessage_PreservesOrder(t *testing.T) {
	task := Task{ID: "t1", Status: TaskStatus{State: TaskStateWorking}}
	task.AddMessage(textMessage(MessageRoleUser, "first"))
	task.AddMessage(textMessage(MessageRoleAgent, "second"))
	task.AddMessage(textMessage(MessageRoleUser, "third"))

	if len(task.History) != 3 {
		t.Fatalf("history length = %d, want 3", len(task.History))
	}
	for i, want := range []string{"first", "second", "third"} {
		if got := *task.History[i].Parts[0].Text; got != want {
			t.Errorf("history[%d] = %q, want %q", i, got, want)
		}
	}
}

func TestTask_UpsertArtifact_AppendsNewIndex(t *testing.T) {
	task := Task{ID: "t1", Status: TaskStatus{State: TaskStateWorking}}
	if err := task.UpsertArtifact(textArtifact(0, "a")); err != nil {
		t.Fatalf("UpsertArtifact: %v", err)
	}
	if err := task.UpsertArtifact(textArtifact(1, "b")); err != nil {
		t.Fatalf("UpsertArtifact: %v", err)
	}
	if len(task.Artifacts) != 2 {
		t.Fatalf("artifact count = %d, want 2", len(task.Artifacts))
	}
}

func TestTask_UpsertArtifact_ReplacesInPlace(t *testing.T) {
	task := Task{ID: "t1", Status: TaskStatus{State: TaskStateWorking}}
	for i, text := range []string{"a", "b", "c"} {
		if err := task.UpsertArtifact(textArtifact(i, text)); err != nil {
			t.Fatalf("UpsertArtifact: %v", err)
		}
	}

	// Upserting index 1 twice with different payloads leaves exactly one
	// artifact at that index, holding the last payload, in its old position.
	if err := task.UpsertArtifact(textArtifact(1, "replaced")); err != nil {
		t.Fatalf("UpsertArtifact: %v", err)
	}
	if len(task.Artifacts) != 3 {
		t.Fatalf("artifact count = %d, want 3", len(task.Artifacts))
	}
	if got := *task.Artifacts[1].Parts[0].Text; got != "replaced" {
		t.Errorf("artifacts[1] = %q, want %q", got, "replaced")
	}
	if task.Artifacts[1].Index != 1 {
		t.Errorf("artifacts[1].Index = %d, want 1", task.Artifacts[1].Index)
	}
}

func TestTask_UpsertArtifact_AppendChunk(t *testing.T) {
	task := Task{ID: "t1", Status: TaskStatus{State: TaskStateWorking}}
	if err := task.UpsertArtifact(textArtifact(0, "chunk-1")); err != nil {
		t.Fatalf("UpsertArtifact: %v", err)
	}

	appendFlag := true
	lastChunk := true
	chunk := Artifact{
		Index:     0,
		Parts:     []Part{NewTextPart("chunk-2")},
		Append:    &appendFlag,
		LastChunk: &lastChunk,
	}
	if err := task.UpsertArtifact(chunk); err != nil {
		t.Fatalf("UpsertArtifact: %v", err)
	}

	if len(task.Artifacts) != 1 {
		t.Fatalf("artifact count = %d, want 1", len(task.Artifacts))
	}
	if len(task.Artifacts[0].Parts) != 2 {
		t.Fatalf("part count = %d, want 2", len(task.Artifacts[0].Parts))
	}
}

func TestTask_UpsertArtifact_AppendToMissingIndex(t *testing.T) {
	task := Task{ID: "t1", Status: TaskStatus{State: TaskStateWorking}}
	appendFlag := true
	chunk := Artifact{Index: 5, Parts: []Part{NewTextPart("x")}, Append: &appendFlag}
	if err := task.UpsertArtifact(chunk); err == nil {
		t.Fatal("expected error appending to missing artifact index")
	}
}

func TestTask_Validate(t *testing.T) {
	tests := []struct {
		name    string
		task    Task
		wantErr bool
	}{
		{
			name: "valid task",
			task: Task{
				ID:      "t1",
				Status:  TaskStatus{State: TaskStateWorking},
				History: []Message{textMessage(MessageRoleUser, "hi")},
			},
		},
		{
			name:    "missing id",
			task:    Task{Status: TaskStatus{State: TaskStateWorking}},
			wantErr: true,
		},
		{
			name:    "bad state",
			task:    Task{ID: "t1", Status: TaskStatus{State: TaskState("done")}},
			wantErr: true,
		},
		{
			name: "malformed history message",
			task: Task{
				ID:      "t1",
				Status:  TaskStatus{State: TaskStateWorking},
				History: []Message{{Role: "robot", Parts: []Part{NewTextPart("hi")}}},
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.task.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTask_JSONRoundTrip(t *testing.T) {
	session := "session-1"
	task := Task{
		ID:        "task-1",
		SessionID: &session,
		Status:    TaskStatus{State: TaskStateInputRequired},
		History: []Message{
			textMessage(MessageRoleUser, "question"),
			textMessage(MessageRoleAgent, "answer"),
		},
		Artifacts: []Artifact{textArtifact(0, "result")},
		Metadata:  map[string]interface{}{"origin": "test"},
	}

	data, err := json.Marshal(task)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded Task
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff(task, decoded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
