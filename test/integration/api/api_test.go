// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

//go:build integration

package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/tasklane/tasklane/internal/auth"
	"github.com/tasklane/tasklane/internal/todo"
)

var userSeq atomic.Int64

// browser keeps cookies between calls.
type browser struct {
	http *http.Client
}

func newBrowser() *browser {
	jar, err := cookiejar.New(nil)
	Expect(err).NotTo(HaveOccurred())
	return &browser{http: &http.Client{Jar: jar, Timeout: 10 * time.Second}}
}

func (b *browser) call(method, path string, body any) (int, map[string]any) {
	GinkgoHelper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
	}
	req, err := http.NewRequestWithContext(env.ctx, method, env.server.URL+"/api/v1"+path, bytes.NewReader(payload))
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.http.Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	var decoded map[string]any
	Expect(json.NewDecoder(resp.Body).Decode(&decoded)).To(Succeed())
	return resp.StatusCode, decoded
}

// register signs up a fresh user and returns its username.
func (b *browser) register() string {
	GinkgoHelper()
	n := userSeq.Add(1)
	username := fmt.Sprintf("user%d", n)
	status, body := b.call(http.MethodPost, "/auth/register", map[string]string{
		"firstName": "ada",
		"lastName":  "lovelace",
		"username":  username,
		"email":     fmt.Sprintf("user%d@example.com", n),
		"password":  "s3cret!",
	})
	Expect(status).To(Equal(http.StatusCreated), "%v", body)
	return username
}

func (b *browser) createTodo(title string) string {
	GinkgoHelper()
	status, body := b.call(http.MethodPost, "/todo/create", map[string]string{"title": title})
	Expect(status).To(Equal(http.StatusCreated), "%v", body)
	return body["todo"].(map[string]any)["id"].(string)
}

var _ = Describe("Tasklane API on PostgreSQL", func() {
	Describe("registration", func() {
		It("rejects a username that differs only in case", func() {
			ada := newBrowser()
			username := ada.register()

			status, body := newBrowser().call(http.MethodPost, "/auth/register", map[string]string{
				"firstName": "ada",
				"lastName":  "lovelace",
				"username":  "  " + username + "  ",
				"email":     "different-" + username + "@example.com",
				"password":  "s3cret!",
			})
			Expect(status).To(Equal(http.StatusConflict))
			Expect(body["code"]).To(Equal(auth.CodeDuplicateCredential))
			Expect(body["field"]).To(Equal("username"))
		})

		It("logs in by email regardless of case", func() {
			ada := newBrowser()
			username := ada.register()

			status, body := newBrowser().call(http.MethodPost, "/auth/login", map[string]string{
				"identifier": "  " + username + "@EXAMPLE.com",
				"password":   "s3cret!",
			})
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["message"]).To(Equal("Login successful"))
		})
	})

	Describe("todo ownership", func() {
		var (
			owner    *browser
			intruder *browser
			todoID   string
		)

		BeforeEach(func() {
			owner = newBrowser()
			owner.register()
			intruder = newBrowser()
			intruder.register()
			todoID = owner.createTodo("water the plants")
		})

		It("lets the owner rename, toggle and delete", func() {
			status, body := owner.call(http.MethodPost, "/todo/update/"+todoID, map[string]string{"title": "water the cactus"})
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["todo"]).To(HaveKeyWithValue("title", "water the cactus"))

			status, body = owner.call(http.MethodPost, "/todo/update-status/"+todoID, nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["todo"]).To(HaveKeyWithValue("isCompleted", true))

			status, _ = owner.call(http.MethodDelete, "/todo/delete/"+todoID, nil)
			Expect(status).To(Equal(http.StatusOK))

			status, body = owner.call(http.MethodDelete, "/todo/delete/"+todoID, nil)
			Expect(status).To(Equal(http.StatusNotFound))
			Expect(body["code"]).To(Equal(todo.CodeNotFound))
		})

		It("forbids every mutation by another user", func() {
			status, body := intruder.call(http.MethodPost, "/todo/update/"+todoID, map[string]string{"title": "mine now"})
			Expect(status).To(Equal(http.StatusForbidden))
			Expect(body["code"]).To(Equal(todo.CodeForbidden))

			status, _ = intruder.call(http.MethodPost, "/todo/update-status/"+todoID, nil)
			Expect(status).To(Equal(http.StatusForbidden))

			status, _ = intruder.call(http.MethodDelete, "/todo/delete/"+todoID, nil)
			Expect(status).To(Equal(http.StatusForbidden))

			status, body = owner.call(http.MethodGet, "/auth/get-me", nil)
			Expect(status).To(Equal(http.StatusOK))
			todos := body["user"].(map[string]any)["todos"].([]any)
			Expect(todos).To(HaveLen(1))
			Expect(todos[0]).To(HaveKeyWithValue("title", "water the plants"))
			Expect(todos[0]).To(HaveKeyWithValue("isCompleted", false))
		})

		It("removes a deleted todo from the owner's profile", func() {
			status, _ := owner.call(http.MethodDelete, "/todo/delete/"+todoID, nil)
			Expect(status).To(Equal(http.StatusOK))

			_, body := owner.call(http.MethodGet, "/auth/get-me", nil)
			Expect(body["user"].(map[string]any)["todos"]).To(BeEmpty())
		})
	})

	Describe("logout", func() {
		It("revokes the token in the database", func() {
			ada := newBrowser()
			ada.register()

			status, body := ada.call(http.MethodPost, "/auth/logout", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["message"]).To(Equal("Logout successful"))

			status, body = ada.call(http.MethodGet, "/auth/is-logged-in", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["authenticated"]).To(BeFalse())

			var revoked int
			Expect(env.pool.QueryRow(env.ctx, "SELECT count(*) FROM revoked_tokens").Scan(&revoked)).To(Succeed())
			Expect(revoked).To(BeNumerically(">=", 1))

			purged, err := env.revocations.Purge(env.ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(purged).To(BeZero())
		})
	})
})
