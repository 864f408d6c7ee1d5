// Copyright 2020 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package transport

import (
	"context"
	"io"
	"net/http"

	"github.com/copperhead-labs/attestation-server/internal/logging"
	"github.com/copperhead-labs/attestation-server/internal/verifyerr"
	"go.uber.org/zap"
)

func loggerFrom(ctx context.Context) *zap.SugaredLogger {
	return logging.FromContext(ctx)
}

// readAll drains the (already size-limited) request body.
func readAll(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(r.Body)
}

// writeVerifyError maps a VerifySerialized failure onto an HTTP status and
// writes the error's text as the body. Store-availability failures map to
// 503 so a client knows to retry; every other coded rejection is the
// caller's fault and maps to 400. An error that carries no verifyerr code
// maps to 500.
func writeVerifyError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if ve, ok := verifyerr.As(err); ok {
		switch ve.Code {
		case verifyerr.CodeStoreBusy, verifyerr.CodeStoreFailure:
			status = http.StatusServiceUnavailable
		}
	} else {
		status = http.StatusInternalServerError
	}
	http.Error(w, err.Error(), status)
}
