// Package user contains the implementation of interacting with the MongoDB users collection.
// The UserManager is responsible for validating input and running register, find, update and remove against a Store.
// MongoStore is the Store backed by a MongoDB collection; MemoryStore keeps users in memory.
// The User struct represents a stored account. Interaction with existing users is by ID. BSON is used to interact with the database.
package user
