// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package badger

// Repositories bundles every BadgerDB repository sharing one backend.
type Repositories struct {
	Backend    *Backend
	Threads    *ThreadRepository
	Profiles   *ProfileRepository
	Heartbeats *HeartbeatRepository
}

// Close releases the sequences and closes the backend.
func (r *Repositories) Close() error {
	r.Threads.Close()
	r.Profiles.Close()
	return r.Backend.Close()
}

// OpenRepositories opens a backend and every repository on it.
// An empty path with inMemory set yields a throwaway store for tests.
func OpenRepositories(path string, inMemory bool) (*Repositories, error) {
	backend, err := OpenBackend(path, inMemory)
	if err != nil {
		return nil, err
	}

	threads, err := NewThreadRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	profiles, err := NewProfileRepository(backend)
	if err != nil {
		threads.Close()
		backend.Close()
		return nil, err
	}

	return &Repositories{
		Backend:    backend,
		Threads:    threads,
		Profiles:   profiles,
		Heartbeats: NewHeartbeatRepository(backend),
	}, nil
}

// NewMemoryRepositories creates in-memory repositories for testing.
// Caller must Close the result when done.
func NewMemoryRepositories() (*Repositories, error) {
	return OpenRepositories("", true)
}
