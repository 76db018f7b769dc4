// Package services contains the services that sit between callers (the web server, the CLI) and the user models.
//
// Current services include:
//   - UserService:
//     Runs register, find, update and remove asynchronously. Every call returns a Task and optionally invokes a
//     Callback; both observe the same Response envelope ({error, data: {users}}). Successful writes publish a
//     lifecycle Event.
//   - AMQPService:
//     Is an AMQP 0.9.1 publisher that delivers lifecycle Events to a topic exchange.
package services
