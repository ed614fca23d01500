package smdbx

import (
	"runtime"

	mdbx "github.com/erigontech/mdbx-go/mdbx"
)

type txnRequestKind int

const (
	txnBegin txnRequestKind = iota
	txnCommit
	txnAbort
)

type txnRequest struct {
	kind   txnRequestKind
	parent *mdbx.Txn
	txn    *mdbx.Txn
	resp   chan txnResponse
}

type txnResponse struct {
	txn     *mdbx.Txn
	latency mdbx.CommitLatency
	err     error
}

// txnWorker owns the OS thread that every write transaction begins and
// ends on. The operations in between may run on any goroutine because the
// environment unbinds transactions from threads. Requests rendezvous on an
// unbuffered channel, so a beginning writer blocks until the thread picks
// its request up. Errors travel back untranslated; callers wrap them.
type txnWorker struct {
	env      *mdbx.Env
	requests chan txnRequest
	quit     chan struct{}
	done     chan struct{}
}

func startTxnWorker(env *mdbx.Env) *txnWorker {
	w := &txnWorker{
		env:      env,
		requests: make(chan txnRequest),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *txnWorker) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(w.done)
	for {
		select {
		case <-w.quit:
			return
		case req := <-w.requests:
			var resp txnResponse
			switch req.kind {
			case txnBegin:
				resp.txn, resp.err = w.env.BeginTxn(req.parent, 0)
			case txnCommit:
				resp.latency, resp.err = req.txn.Commit()
			case txnAbort:
				req.txn.Abort()
			}
			req.resp <- resp
		}
	}
}

func (w *txnWorker) submit(req txnRequest) txnResponse {
	req.resp = make(chan txnResponse, 1)
	select {
	case w.requests <- req:
		return <-req.resp
	case <-w.quit:
		return txnResponse{err: NewError(ErrBadSign)}
	}
}

// begin starts a write transaction on the writer thread. With a nil parent
// the engine reports busy while another write transaction is running;
// nested begins are served immediately because the thread already owns the
// parent.
func (w *txnWorker) begin(parent *mdbx.Txn) (*mdbx.Txn, error) {
	resp := w.submit(txnRequest{kind: txnBegin, parent: parent})
	return resp.txn, resp.err
}

func (w *txnWorker) commit(tx *mdbx.Txn) (mdbx.CommitLatency, error) {
	resp := w.submit(txnRequest{kind: txnCommit, txn: tx})
	return resp.latency, resp.err
}

func (w *txnWorker) abort(tx *mdbx.Txn) {
	w.submit(txnRequest{kind: txnAbort, txn: tx})
}

// stop shuts the writer thread down and waits for it to exit, so the
// environment handle can be closed safely afterwards.
func (w *txnWorker) stop() {
	close(w.quit)
	<-w.done
}
