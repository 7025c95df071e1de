package events

import (
	"encoding/json"
	"math/big"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func TestRecorderOrder(t *testing.T) {
	c := qt.New(t)

	r := NewRecorder()
	c.Assert(len(r.Events()), qt.Equals, 0)

	r.Emit(New(DeviceRegistered, big.NewInt(1), true, time.Now()))
	r.Emit(New(AuthenticationAttempt, big.NewInt(1), false, time.Now()))
	r.Emit(New(TransactionRecorded, big.NewInt(1), true, time.Now()))

	evs := r.Events()
	c.Assert(len(evs), qt.Equals, 3)
	c.Assert(evs[0].Kind, qt.Equals, DeviceRegistered)
	c.Assert(evs[1].Kind, qt.Equals, AuthenticationAttempt)
	c.Assert(evs[1].Success, qt.IsFalse)
	c.Assert(evs[2].Kind, qt.Equals, TransactionRecorded)

	// each event carries a unique id
	c.Assert(evs[0].ID, qt.Not(qt.Equals), evs[1].ID)

	// the snapshot is detached from the recorder
	evs[0].Kind = DeviceDeactivated
	c.Assert(r.Events()[0].Kind, qt.Equals, DeviceRegistered)
}

func TestEventJSON(t *testing.T) {
	c := qt.New(t)

	e := New(AuthenticationAttempt, big.NewInt(1234), true,
		time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	j, err := json.Marshal(e)
	c.Assert(err, qt.IsNil)

	var e2 Event
	err = json.Unmarshal(j, &e2)
	c.Assert(err, qt.IsNil)
	c.Assert(e2.Kind, qt.Equals, AuthenticationAttempt)
	c.Assert(e2.DeviceID.String(), qt.Equals, "1234")
	c.Assert(e2.Success, qt.IsTrue)
	c.Assert(e2.ID, qt.Equals, e.ID)
}
